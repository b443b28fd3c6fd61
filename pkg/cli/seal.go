package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-logscope/pkg/crypto"
)

func newSealCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seal [value]",
		Short: "Encrypt a secret for use in the topology document",
		Long: `Seal encrypts a password or other node parameter with LOGSCOPE_SECRET_KEY.
The printed "enc:..." value can replace the clear text value in the topology.
Without an argument the value is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.SecretKey == "" {
				return errors.New("LOGSCOPE_SECRET_KEY is not set")
			}
			sealer, err := crypto.NewSealer(a.cfg.SecretKey)
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
			if value == "" {
				return errors.New("nothing to seal")
			}

			sealed, err := sealer.Seal(value)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return err
		},
	}
}
