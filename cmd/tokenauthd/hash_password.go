package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardhub/tokenauth/internal/config"
	"github.com/boardhub/tokenauth/password"
)

func hashPasswordCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print an argon2id hash for seeding the users table",
		Long:  "Print an argon2id hash. The password is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			plain := ""
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password on stdin")
				}
				plain = strings.TrimRight(line, "\r\n")
			}

			engineCfg, err := cfg.Engine()
			if err != nil {
				return err
			}
			p := engineCfg.Password
			hasher, err := password.NewHasher(password.Config{
				Memory:      p.Memory,
				Time:        p.Time,
				Parallelism: p.Parallelism,
				SaltLength:  p.SaltLength,
				KeyLength:   p.KeyLength,
			})
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
