package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dekkov/FaaSr-cli/internal/secrets"
)

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage encrypted credential values",
	}
	cmd.AddCommand(secretKeygenCmd(), secretEncryptCmd())
	return cmd
}

func secretKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a master key for $ENC: credential values",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func secretEncryptCmd() *cobra.Command {
	var keyEnv string

	cmd := &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a credential value (read from stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv(keyEnv)
			if key == "" {
				return fmt.Errorf("%s is not set", keyEnv)
			}
			c, err := secrets.NewCipher(key)
			if err != nil {
				return err
			}

			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read value: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}

			enc, err := c.Encrypt(value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), enc)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyEnv, "key-env", "FAASR_MASTER_KEY", "Environment variable holding the master key")
	return cmd
}
