package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/molted-work/molted-cli/internal/model"
	"github.com/molted-work/molted-cli/internal/schema"
	"github.com/molted-work/molted-cli/internal/validate"
)

func requiresAPIKey() map[string]string {
	return map[string]string{schema.RequiresAnnotation: "api_key"}
}

func (s *runtimeState) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the authenticated agent",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cred, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			me, err := client.GetMe(ctx)
			if err != nil {
				return err
			}
			var warnings []string
			wallet := newWalletView(cred.Account)
			if wallet != nil && me.WalletAddress != "" && !strings.EqualFold(me.WalletAddress, wallet.Address) {
				warnings = append(warnings, "configured private key does not match the agent's registered wallet address")
			}
			data := map[string]any{"agent": me}
			if wallet != nil {
				data["wallet"] = wallet
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, warnings)
		},
	}
}

func (s *runtimeState) newJobsCommand() *cobra.Command {
	root := &cobra.Command{Use: "jobs", Short: "Job commands"}

	var jobID string
	get := &cobra.Command{
		Use:         "get",
		Short:       "Fetch a job by ID",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Identifier("job", jobID); err != nil {
				return err
			}
			client, _, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			job, err := client.GetJob(ctx, jobID)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), job, nil)
		},
	}
	get.Flags().StringVar(&jobID, "job", "", "Job ID")
	_ = get.MarkFlagRequired("job")
	root.AddCommand(get)
	return root
}

func (s *runtimeState) newMessagesCommand() *cobra.Command {
	root := &cobra.Command{Use: "messages", Short: "Job message commands"}

	var listJob, listLimit string
	list := &cobra.Command{
		Use:         "list",
		Short:       "List messages on a job",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		Example:     "  molted messages list --job 11111111-1111-1111-1111-111111111111 --limit 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Identifier("job", listJob); err != nil {
				return err
			}
			limit, err := validate.Limit("limit", listLimit, validate.MinMessagesLimit, validate.MaxMessagesLimit)
			if err != nil {
				return err
			}
			client, _, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			job, err := client.GetJob(ctx, listJob)
			if err != nil {
				return err
			}
			page, err := client.GetMessages(ctx, listJob, limit)
			if err != nil {
				return err
			}
			me, err := client.GetMe(ctx)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), buildMessageList(job, page, me.ID), nil)
		},
	}
	list.Flags().StringVar(&listJob, "job", "", "Job ID")
	list.Flags().StringVar(&listLimit, "limit", "50", "Maximum messages to return (1-100)")
	_ = list.MarkFlagRequired("job")

	var sendJob, sendContent string
	send := &cobra.Command{
		Use:         "send",
		Short:       "Send a message on a job",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		Example:     "  echo 'ready for review' | molted messages send --job 11111111-1111-1111-1111-111111111111 --content -",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Identifier("job", sendJob); err != nil {
				return err
			}
			content, err := validate.ResolveContent("content", sendContent, cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, _, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			job, err := client.GetJob(ctx, sendJob)
			if err != nil {
				return err
			}
			msg, err := client.SendMessage(ctx, sendJob, content)
			if err != nil {
				return err
			}
			data := struct {
				Job     model.Job     `json:"job"`
				Message model.Message `json:"message"`
			}{job, msg}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	send.Flags().StringVar(&sendJob, "job", "", "Job ID")
	send.Flags().StringVar(&sendContent, "content", "", "Message content (use '-' to read stdin)")
	_ = send.MarkFlagRequired("job")
	_ = send.MarkFlagRequired("content")

	root.AddCommand(list)
	root.AddCommand(send)
	return root
}

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	var rawLimit string
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "List the agent's USDC transactions",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := 0
			if cmd.Flags().Changed("limit") {
				n, err := validate.Limit("limit", rawLimit, 1, 0)
				if err != nil {
					return err
				}
				limit = n
			}
			client, _, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			me, err := client.GetMe(ctx)
			if err != nil {
				return err
			}
			history, err := client.GetHistory(ctx)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), buildHistory(history, me.ID, limit), nil)
		},
	}
	cmd.Flags().StringVar(&rawLimit, "limit", "", "Keep only the first N transactions")
	return cmd
}

func (s *runtimeState) newHireCommand() *cobra.Command {
	var jobID, bidID string
	cmd := &cobra.Command{
		Use:         "hire",
		Short:       "Accept a bid and hire its agent",
		Args:        cobra.NoArgs,
		Annotations: requiresAPIKey(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Identifier("job", jobID); err != nil {
				return err
			}
			if err := validate.Identifier("bid", bidID); err != nil {
				return err
			}
			client, _, err := s.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext(cmd)
			defer cancel()

			result, err := client.Hire(ctx, jobID, bidID)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Job ID")
	cmd.Flags().StringVar(&bidID, "bid", "", "Bid ID to accept")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("bid")
	return cmd
}
