// Package cli implements the fingerprint command line. It is a thin
// operational wrapper around the recording library: the real consumer of
// recorded entry sets is the surrounding build orchestrator, not this
// command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codalotl/fingerprint/internal/config"
	"github.com/codalotl/fingerprint/internal/hashsrc"
	"github.com/codalotl/fingerprint/internal/record"
)

// Run executes the root command against os.Args.
func Run() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the fingerprint command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fingerprint",
		Short:         "Record content-addressed fingerprints of build inputs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRecordCommand())
	return root
}

func newRecordCommand() *cobra.Command {
	var (
		rootDir    string
		configPath string
		outPath    string
		session    string
	)

	cmd := &cobra.Command{
		Use:   "record PATH...",
		Short: "Record fingerprint entries for paths inside a project tree",
		Long: `Record produces one content-addressed fingerprint entry per distinct path
reachable from the given project-relative paths, and writes the resulting
entry set as JSON. Symlinks that escape the project root are recorded as
boundary entries mapping the symlink to its resolved target.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if session == "" {
				session = cfg.Session
			}
			if session == "" {
				session = uuid.NewString()
			}

			src, err := hashsrc.New(rootDir)
			if err != nil {
				return err
			}

			set := record.NewEntrySet(session)
			cache, err := record.New(src, set, record.Options{
				Whitelist:       cfg.MaterializeWhitelist,
				InlineThreshold: cfg.InlineThresholdBytes,
				Parallelism:     cfg.Parallelism,
			})
			if err != nil {
				return err
			}

			for _, arg := range args {
				rel, err := projectRelative(src.Root(), arg)
				if err != nil {
					return err
				}
				if _, err := cache.Get(rel); err != nil {
					return fmt.Errorf("record %s: %w", arg, err)
				}
			}

			wire, err := set.Extract()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return writeWire(out, wire)
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "project root directory")
	cmd.Flags().StringVar(&configPath, "config", "fingerprint.yaml", "config file path")
	cmd.Flags().StringVar(&outPath, "out", "", "write JSON output to this file instead of stdout")
	cmd.Flags().StringVar(&session, "session", "", "session identifier tagging the entry set (default: config, else random)")
	return cmd
}

// projectRelative converts an argument to the forward-slash project-relative
// form the recording library expects. Absolute arguments must lie inside the
// project root.
func projectRelative(root, arg string) (string, error) {
	if !filepath.IsAbs(arg) {
		return filepath.ToSlash(filepath.Clean(arg)), nil
	}
	rel, err := filepath.Rel(root, arg)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the project root %q", arg, root)
	}
	return filepath.ToSlash(rel), nil
}

func writeWire(w io.Writer, wire record.Wire) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wire)
}
