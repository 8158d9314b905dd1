package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate SESSION_HASH_KEY, SESSION_BLOCK_KEY and CRED_ENC_KEY values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range []struct {
				name string
				size int
			}{
				{"SESSION_HASH_KEY", 64},
				{"SESSION_BLOCK_KEY", 32},
				{"CRED_ENC_KEY", 32},
			} {
				b := make([]byte, k.size)
				if _, err := rand.Read(b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", k.name, base64.StdEncoding.EncodeToString(b))
			}
			return nil
		},
	}
}
