package flags

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type (
	flagType interface {
		string | int | int64 | bool | time.Duration
	}

	// Def defines a command-line flag and the viper key it is bound to. Flags with an
	// empty ViperKey are read from the command directly.
	Def[T flagType] struct {
		Name         string
		ViperKey     string
		DefaultValue T
		Description  string
	}
)

// Declare declares flags on set and binds them to their viper configuration keys.
func Declare[T flagType](set *pflag.FlagSet, defs []Def[T]) error {
	for _, def := range defs {
		if err := declare(set, def); err != nil {
			return err
		}
	}
	return nil
}

// MustDeclare is Declare for package init.
func MustDeclare[T flagType](cmd *cobra.Command, defs []Def[T]) {
	if err := Declare(cmd.Flags(), defs); err != nil {
		panic(err)
	}
}

// MustDeclarePersistent declares flags inherited by every subcommand.
func MustDeclarePersistent[T flagType](cmd *cobra.Command, defs []Def[T]) {
	if err := Declare(cmd.PersistentFlags(), defs); err != nil {
		panic(err)
	}
}

func declare[T flagType](set *pflag.FlagSet, def Def[T]) error {
	switch value := any(def.DefaultValue).(type) {
	case string:
		set.String(def.Name, value, def.Description)
	case int:
		set.Int(def.Name, value, def.Description)
	case int64:
		set.Int64(def.Name, value, def.Description)
	case bool:
		set.Bool(def.Name, value, def.Description)
	case time.Duration:
		set.Duration(def.Name, value, def.Description)
	default:
		return fmt.Errorf("unsupported flag type for %s", def.Name)
	}

	if def.ViperKey == "" {
		return nil
	}
	return viper.BindPFlag(def.ViperKey, set.Lookup(def.Name))
}
