// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nttcom/tesig/internal/fixture"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode -f <fixture.yaml>",
		Short: "Encode a construct described in a yaml file",
		RunE: func(cmd *cobra.Command, args []string) error {
			filepath, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}
			if filepath == "" {
				return errors.New("file path option \"-f filepath\" is mandatory")
			}
			return runEncode(cmd.OutOrStdout(), filepath)
		},
	}

	encodeCmd.Flags().StringP("file", "f", "", "[mandatory] path to yaml formatted construct file")
	return encodeCmd
}

func runEncode(w io.Writer, filepath string) error {
	f, err := fixture.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("file %q: %w", filepath, err)
	}
	c, err := f.Build()
	if err != nil {
		return fmt.Errorf("file %q: %w", filepath, err)
	}
	b, err := c.Serialize()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.Kind(), err)
	}
	log.Debug("encoded construct", zap.String("kind", f.Kind()), zap.Object("construct", c))

	if jsonFmt {
		out, err := json.Marshal(map[string]any{
			"kind":   f.Kind(),
			"length": len(b),
			"hex":    hex.EncodeToString(b),
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	_, err = fmt.Fprintln(w, hex.EncodeToString(b))
	return err
}
