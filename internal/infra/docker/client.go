package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/compose-network/mediactl/internal/logger"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

type (
	Client struct {
		cli    *client.Client
		logger *slog.Logger
	}

	// RunOptions describe a long-running container started in the background.
	RunOptions struct {
		Name       string
		Image      string
		Entrypoint []string
		Cmd        []string
		Env        []string
		Labels     map[string]string
		// Ports maps container TCP ports to host ports published on HostIP.
		Ports  map[int]int
		HostIP string
	}

	// ContainerState is what Inspect reports about a named container.
	ContainerState struct {
		ID      string
		Image   string
		Status  string
		Running bool
		Ports   map[int]int
	}
)

// New creates a new Docker client from the environment.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	return &Client{cli: cli, logger: logger.Named("docker_client")}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// ImageExists checks if a Docker image exists locally.
func (c *Client) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, _, err := c.cli.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// PullImage pulls a Docker image from a registry.
func (c *Client) PullImage(ctx context.Context, imageName string) error {
	c.logger.With("image", imageName).Info("pulling docker image")

	resp, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer resp.Close()

	if err := readPullStream(resp, c.logger); err != nil {
		return err
	}

	c.logger.With("image", imageName).Info("docker image pulled successfully")
	return nil
}

// readPullStream drains the JSON progress stream of a pull and returns the last error it reports.
func readPullStream(r io.Reader, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	var pullError error
	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug(line)

		var msg struct {
			Error       string `json:"error"`
			ErrorDetail struct {
				Message string `json:"message"`
			} `json:"errorDetail"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err == nil && msg.Error != "" {
			pullError = fmt.Errorf("pull failed: %s", msg.Error)
			logger.Error("docker pull error", "error", msg.Error)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading pull output: %w", err)
	}

	return pullError
}

// RunDetached creates and starts a container without waiting for it to exit.
func (c *Client) RunDetached(ctx context.Context, opts RunOptions) (string, error) {
	exposed, bindings, err := portBindings(opts.Ports, opts.HostIP)
	if err != nil {
		return "", err
	}

	config := &container.Config{
		Image:        opts.Image,
		Entrypoint:   opts.Entrypoint,
		Cmd:          opts.Cmd,
		Env:          opts.Env,
		Labels:       opts.Labels,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	c.logger.With("name", opts.Name, "id", resp.ID, "image", opts.Image).Info("container started")

	return resp.ID, nil
}

// Inspect reports the state of a container. The boolean is false when it does not exist.
func (c *Client) Inspect(ctx context.Context, name string) (ContainerState, bool, error) {
	info, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ContainerState{}, false, nil
		}
		return ContainerState{}, false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	if info.ContainerJSONBase == nil {
		return ContainerState{}, false, fmt.Errorf("container %s: empty inspect response", name)
	}

	state := ContainerState{ID: info.ID, Ports: make(map[int]int)}
	if info.Config != nil {
		state.Image = info.Config.Image
	}
	if info.State != nil {
		state.Status = string(info.State.Status)
		state.Running = info.State.Running
	}
	if info.HostConfig != nil {
		for port, bindings := range info.HostConfig.PortBindings {
			for _, binding := range bindings {
				if hostPort, err := strconv.Atoi(binding.HostPort); err == nil {
					state.Ports[port.Int()] = hostPort
				}
			}
		}
	}

	return state, true, nil
}

// Remove force-removes a container. Removing a missing container is not an error.
func (c *Client) Remove(ctx context.Context, name string) error {
	err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}

	c.logger.With("name", name).Info("container removed")
	return nil
}

func portBindings(ports map[int]int, hostIP string) (nat.PortSet, nat.PortMap, error) {
	exposed := make(nat.PortSet, len(ports))
	bindings := make(nat.PortMap, len(ports))

	for containerPort, hostPort := range ports {
		port, err := nat.NewPort("tcp", strconv.Itoa(containerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %d: %w", containerPort, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: hostIP, HostPort: strconv.Itoa(hostPort)}}
	}

	return exposed, bindings, nil
}
