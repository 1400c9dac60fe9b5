package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docqa/internal/app"
	"docqa/internal/bootstrap"
	"docqa/internal/model"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest local files into the index",
	Long: `Ingest runs the same pipeline as POST /upload over local files and
prints one line per file. It exits non-zero if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print outcomes as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files := make([]app.UploadFile, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		files = append(files, localFile(path, info.Size()))
	}

	a, err := openApp(ctx, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.RAG.Ingest(ctx, files)
	if err != nil {
		return err
	}

	if ingestJSON {
		out, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
	} else {
		for _, o := range outcomes {
			line := fmt.Sprintf("%-8s %s", o.Status, o.Filename)
			if o.DocumentID != "" {
				line += fmt.Sprintf("  id=%s chunks=%d", o.DocumentID, o.ChunkCount)
			}
			if o.Duplicate {
				line += "  (duplicate)"
			}
			if o.Error != "" {
				line += "  error: " + o.Error
			}
			cmd.Println(line)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Status == model.DocumentFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
}

func localFile(path string, size int64) app.UploadFile {
	return app.UploadFile{
		Filename: filepath.Base(path),
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
