package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/boxskill/internal/app"
	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/pkg/logger"
)

func newInvokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run the skill once for a payload and print the result",
		Long: `invoke reads an invocation payload from --payload (or stdin when it is "-"),
runs the skill and prints the JSON result. A "config" key in the payload
selects the config file when --config is not given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payloadPath, _ := cmd.Flags().GetString("payload")
			data, err := readPayload(cmd.InOrStdin(), payloadPath)
			if err != nil {
				return err
			}
			inv, err := model.DecodeInvocation(data)
			if err != nil {
				return err
			}

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = inv.Config
			}
			ctx := cmd.Context()
			cfg, log, err := setup(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			res, err := service.New(cfg, service.WithLogger(log.Named("skill"))).Invoke(ctx, inv)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(res)
		},
	}
	cmd.Flags().String("payload", "-", `invocation payload file, "-" for stdin`)
	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}
