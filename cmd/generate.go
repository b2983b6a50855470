package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sshhub/config"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		sshConfigPath   string
		outputPath      string
		promptPasswords bool
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a config skeleton from ~/.ssh/config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sshConfigPath == "" {
				sshConfigPath = config.DefaultSSHConfigPath()
			}
			if outputPath == "" {
				outputPath = opts.resolveConfigPath()
			}
			if !force {
				if _, err := os.Stat(outputPath); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", outputPath)
				}
			}

			entries, err := config.ParseSSHConfig(sshConfigPath)
			if err != nil {
				return err
			}
			cfg := config.FromSSHConfigEntries(entries)
			if len(cfg.Hosts) == 0 {
				return fmt.Errorf("no usable hosts in %s (need HostName and User)", sshConfigPath)
			}

			if promptPasswords {
				if err := fillPasswords(cfg); err != nil {
					return err
				}
			}

			if err := cfg.WriteFile(outputPath); err != nil {
				return err
			}
			fmt.Printf("wrote %s with %d host(s)\n", outputPath, len(cfg.Hosts))
			if !promptPasswords {
				fmt.Printf("replace %q passwords before starting the daemon\n", config.PasswordPlaceholder)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sshConfigPath, "ssh-config", "", "SSH client config to read (default ~/.ssh/config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default the config path)")
	cmd.Flags().BoolVar(&promptPasswords, "prompt-passwords", false, "interactively prompt for host passwords")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// fillPasswords prompts for each password-auth host on the terminal.
func fillPasswords(cfg *config.AppConfig) error {
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if h.Auth.Type != config.AuthTypePassword {
			continue
		}
		fmt.Printf("password for %s@%s: ", h.Username, h.Host)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		if len(pw) > 0 {
			h.Auth.Password = string(pw)
		}
	}
	return nil
}
