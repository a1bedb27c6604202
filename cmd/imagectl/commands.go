package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/poller"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a JPEG, PNG or WebP image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			resp, err := newAPIClient().Upload(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newProcessCmd() *cobra.Command {
	var (
		conversationID string
		imageURL       string
		file           string
		prompt         string
		wait           bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Submit an edit and wait for the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client := newAPIClient()

			if (imageURL == "") == (file == "") {
				return fmt.Errorf("exactly one of --image-url or --file is required")
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				uploaded, err := client.Upload(ctx, file, data)
				if err != nil {
					return err
				}
				imageURL = uploaded.ImageURL
			}

			if conversationID == "" {
				conv, err := client.CreateConversation(ctx, "")
				if err != nil {
					return err
				}
				conversationID = conv.ID.String()
			}

			submitted, err := client.ProcessImage(ctx, models.ProcessImageRequest{
				ConversationID: conversationID,
				ImageURL:       imageURL,
				Prompt:         prompt,
			})
			if err != nil {
				return err
			}
			if !wait {
				return printJSON(cmd, submitted)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Submitted job %s, waiting...\n", submitted.ProcessingJob.ID)

			p := poller.New(client, newLogger())
			p.OnTerminal = func(job *models.ImageProcessingJob) {
				// refresh the conversation so the assistant message shows its final content
				msgs, err := client.ListMessages(ctx, submitted.AIMessage.ConversationID)
				if err != nil {
					return
				}
				for _, m := range msgs {
					if m.ID == submitted.AIMessage.ID {
						fmt.Fprintln(cmd.ErrOrStderr(), m.Content)
					}
				}
			}

			out, err := p.Run(ctx, submitted.AIMessage.ID)
			if err != nil {
				return err
			}
			if out.GaveUp {
				return fmt.Errorf("stopped waiting after %d attempts; check later with: imagectl job %s",
					out.State.Attempt, submitted.AIMessage.ID)
			}
			if out.Job.Status == models.JobCompleted && out.Job.ProcessedImageURL != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Before: %s\nAfter:  %s\n", out.Job.OriginalImageURL, *out.Job.ProcessedImageURL)
			}
			return printJSON(cmd, out.Job)
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation ID (a new conversation is created when empty)")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "URL of an already uploaded image")
	cmd.Flags().StringVar(&file, "file", "", "local image to upload first")
	cmd.Flags().StringVar(&prompt, "prompt", "", "edit instruction")
	cmd.Flags().BoolVar(&wait, "wait", true, "poll the job until it finishes")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <message-id>",
		Short: "Show the processing job of an assistant message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id: %w", err)
			}
			job, err := newAPIClient().GetJob(cmd.Context(), messageID)
			if apperr.IsNotFound(err) {
				return fmt.Errorf("message %s has no processing job", messageID)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the model configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the active model configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := newAPIClient().GetModelConfig(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	})

	var (
		model         string
		quality       string
		maxResolution int
		timeout       int
		apiKey        string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change model configuration fields; unset flags keep their value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req models.ModelConfigRequest
			flags := cmd.Flags()
			if flags.Changed("model") {
				req.Model = &model
			}
			if flags.Changed("quality") {
				req.OutputQuality = &quality
			}
			if flags.Changed("max-resolution") {
				req.MaxResolution = &maxResolution
			}
			if flags.Changed("timeout") {
				req.Timeout = &timeout
			}
			if flags.Changed("api-key") {
				req.APIKey = &apiKey
			}

			cfg, err := newAPIClient().UpdateModelConfig(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
	set.Flags().StringVar(&model, "model", "", "OpenRouter model identifier")
	set.Flags().StringVar(&quality, "quality", "", "output quality: low, medium or high")
	set.Flags().IntVar(&maxResolution, "max-resolution", 0, "longest edge in pixels")
	set.Flags().IntVar(&timeout, "timeout", 0, "provider timeout in seconds")
	set.Flags().StringVar(&apiKey, "api-key", "", "OpenRouter API key; pass an empty value to clear it")
	cmd.AddCommand(set)

	return cmd
}
