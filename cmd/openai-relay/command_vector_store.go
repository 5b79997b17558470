package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/picatz/openai-relay/internal/relay"
	"github.com/spf13/cobra"
)

func init() {
	vectorStoreCreateCmd.Annotations = providerCommand
	vectorStoreUploadCmd.Annotations = providerCommand

	vectorStoreCmd.AddCommand(
		vectorStoreCreateCmd,
		vectorStoreUploadCmd,
	)

	rootCmd.AddCommand(vectorStoreCmd)
}

var vectorStoreCmd = &cobra.Command{
	Use:     "vector-store",
	Aliases: []string{"vs"},
	Short:   "Manage vector stores used by file search",
}

var vectorStoreCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an empty vector store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}

		vs, err := svc.CreateVectorStore(cmd.Context(), relay.VectorStoreRequest{Name: name})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleBold.Render(vs.ID), styleFaint.Render(vs.Name))
		return nil
	},
}

var vectorStoreUploadCmd = &cobra.Command{
	Use:   "upload <vector-store-id> <path>",
	Short: "Upload a file and add it to a vector store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStoreID, path := args[0], args[1]

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		result, err := svc.UploadFile(cmd.Context(), relay.Upload{
			Filename:      filepath.Base(path),
			ContentType:   mime.TypeByExtension(filepath.Ext(path)),
			Body:          f,
			VectorStoreID: vectorStoreID,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
			styleBold.Render(result.FileID),
			result.Filename,
			styleFaint.Render(result.Status),
		)
		return nil
	},
}
