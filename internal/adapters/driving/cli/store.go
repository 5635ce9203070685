package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

// isTerminal reports whether the confirmation prompt can be shown.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// storeCommands builds the key/value subcommands shared by cache and
// settings.
type storeCommands struct {
	name string
	open func() (driving.KeyValueStore, error)

	// Flags
	fallback  string
	asJSON    bool
	kindName  string
	format    string
	assumeYes bool
}

// dumpEntry is one row of dump output.
type dumpEntry struct {
	Key   string `json:"key" yaml:"key"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// attach adds the subcommands to parent.
func (s *storeCommands) attach(parent *cobra.Command) {
	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE:  s.runGet,
	}
	getCmd.Flags().StringVarP(&s.fallback, "default", "d", "", "Value to print when the key does not exist")

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Store a value under a key",
		Long: `Store a value under a key, replacing any previous value.

The value is stored as text unless --json or --type is given:
  --json         parse the value as JSON (numbers, booleans, arrays, objects)
  --type KIND    coerce the value to text, int, float, bool, bytes (base64),
                 null, list or map (JSON)`,
		Args: cobra.ExactArgs(2),
		RunE: s.runSet,
	}
	setCmd.Flags().BoolVar(&s.asJSON, "json", false, "Parse the value as JSON")
	setCmd.Flags().StringVarP(&s.kindName, "type", "t", "", "Value type")

	rmCmd := &cobra.Command{
		Use:     "rm [key]",
		Aliases: []string{"remove"},
		Short:   "Remove a key",
		Args:    cobra.ExactArgs(1),
		RunE:    s.runRemove,
	}

	existsCmd := &cobra.Command{
		Use:   "exists [key]",
		Short: "Report whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE:  s.runExists,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key",
		Args:  cobra.NoArgs,
		RunE:  s.runClear,
	}
	clearCmd.Flags().BoolVarP(&s.assumeYes, "yes", "y", false, "Do not ask for confirmation")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE:  s.runKeys,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every key with its value",
		Args:  cobra.NoArgs,
		RunE:  s.runDump,
	}
	dumpCmd.Flags().StringVarP(&s.format, "format", "f", "text", "Output format: text, json or yaml")

	parent.AddCommand(getCmd, setCmd, rmCmd, existsCmd, clearCmd, keysCmd, dumpCmd)
}

func (s *storeCommands) runGet(cmd *cobra.Command, args []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	value, err := store.Read(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		if cmd.Flags().Changed("default") {
			fmt.Fprintln(cmd.OutOrStdout(), s.fallback)
			return nil
		}
		return fmt.Errorf("key not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), value.String())
	return nil
}

func (s *storeCommands) runSet(cmd *cobra.Command, args []string) error {
	value, err := parseValue(args[1], s.asJSON, s.kindName)
	if err != nil {
		return err
	}

	store, err := s.open()
	if err != nil {
		return err
	}

	if err := store.Write(cmd.Context(), args[0], value); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[0], err)
	}
	drain()
	return nil
}

func (s *storeCommands) runRemove(cmd *cobra.Command, args []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	if err := store.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	drain()
	return nil
}

func (s *storeCommands) runExists(cmd *cobra.Command, args []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	ok, err := store.Exists(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}

func (s *storeCommands) runClear(cmd *cobra.Command, _ []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	if !s.assumeYes && isTerminal() {
		keys, err := store.Keys(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remove all %d keys from %s? [y/N]: ", len(keys), s.name)
		if !confirmed() {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.name, err)
	}
	drain()
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s.\n", s.name)
	return nil
}

func (s *storeCommands) runKeys(cmd *cobra.Command, _ []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	keys, err := store.Keys(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	for _, key := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), key)
	}
	return nil
}

func (s *storeCommands) runDump(cmd *cobra.Command, _ []string) error {
	store, err := s.open()
	if err != nil {
		return err
	}

	entries, err := store.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.name, err)
	}

	rows := make([]dumpEntry, 0, len(entries))
	for _, e := range entries {
		row := dumpEntry{Key: e.Key, Type: e.Kind.String()}
		if v, err := e.Value(); err == nil {
			row.Value = domain.ToAny(v)
		} else {
			row.Value = string(e.Payload)
		}
		rows = append(rows, row)
	}

	switch strings.ToLower(s.format) {
	case "", "text":
		if len(rows) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No keys in %s.\n", s.name)
			return nil
		}
		for i, row := range rows {
			v, _ := entries[i].Value()
			text := string(entries[i].Payload)
			if v != nil {
				text = v.String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", row.Key, text, row.Type)
		}
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	default:
		return fmt.Errorf("unknown format: %s (use text, json or yaml)", s.format)
	}
	return nil
}

// parseValue converts a command line argument into a value.
func parseValue(raw string, asJSON bool, kindName string) (domain.Value, error) {
	if asJSON && kindName != "" {
		return nil, errors.New("--json and --type cannot be combined")
	}

	if asJSON {
		v, err := domain.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid JSON value: %w", err)
		}
		return v, nil
	}

	if kindName == "" {
		return domain.Text(raw), nil
	}

	kind, err := domain.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	if kind.IsComposite() {
		v, err := domain.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", kind, err)
		}
		if v.Kind() != kind {
			return nil, fmt.Errorf("value is a %s, not a %s", v.Kind(), kind)
		}
		return v, nil
	}
	return domain.ParseScalar(raw, kind)
}

func confirmed() bool {
	reader := bufio.NewReader(stdin)
	input, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes"
}
