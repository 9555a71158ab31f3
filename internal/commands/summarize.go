package commands

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skemmarize/skemmarize-cli/internal/api"
)

// maxConcurrentUploads bounds parallel image uploads. Concurrent requests
// sharing one expired token exercise the single-flight refresh path.
const maxConcurrentUploads = 4

func newSummarizeCommand() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "summarize <image>...",
		Short: "Upload one or more images for AI summarization",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mustLoadSession()

			if prompt == "" {
				prompt = cfg.DefaultPrompt
			}

			results := make([]*api.Summary, len(args))

			group, ctx := errgroup.WithContext(cmd.Context())
			group.SetLimit(maxConcurrentUploads)
			for i, path := range args {
				i, path := i, path
				group.Go(func() error {
					req, err := readImage(path, prompt)
					if err != nil {
						return err
					}
					summary, err := apiClient.Summarize(ctx, *req)
					if err != nil {
						return fmt.Errorf("failed to summarize %s: %w", path, err)
					}
					results[i] = summary
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			for i, summary := range results {
				printExchange(filepath.Base(args[i]), prompt, summary.Text)
				if _, err := histStore.Add(filepath.Base(args[i]), prompt, summary.Text); err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not record history: %v\n", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt sent alongside the image")
	return cmd
}

// readImage loads an image file and builds the upload request.
func readImage(path, prompt string) (*api.SummarizeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s does not look like an image (detected %s)", path, contentType)
	}

	return &api.SummarizeRequest{
		ImageName:   filepath.Base(path),
		ContentType: contentType,
		Image:       data,
		Prompt:      prompt,
	}, nil
}

// printExchange renders one user/assistant exchange in the chat style used
// by `skemmarize history`.
func printExchange(image, prompt, summary string) {
	fmt.Printf("you>  %s (%s)\n", prompt, image)
	fmt.Printf("bot>  %s\n\n", summary)
}
