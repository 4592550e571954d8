package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/engine"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxTicketBytes bounds a ticket text file. Extracted receipt text is a
// few kilobytes.
const maxTicketBytes = 1 << 20

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <ticket.txt>...",
		Short: "Match ticket lines to catalog products",
		Long: `Read the plain text of one or more supermarket tickets, extract the
product lines and match each one to the catalog.

Use "-" to read a ticket from standard input. With --review, every item
not resolved by a stored association is shown for confirmation and the
answers are remembered for future tickets.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().Bool("review", false, "interactively confirm or correct matches")
	cmd.Flags().Bool("extract-only", false, "only print the extracted line items")
	cmd.Flags().Int("concurrency", 4, "tickets processed in parallel")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	review, _ := cmd.Flags().GetBool("review")
	extractOnly, _ := cmd.Flags().GetBool("extract-only")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if review && extractOnly {
		return common.NewUserError("--review and --extract-only cannot be combined", nil)
	}
	if review {
		for _, path := range args {
			if path == "-" {
				return common.NewUserError("--review reads answers from standard input; pass ticket files instead of -", nil)
			}
		}
	}

	texts, err := readTickets(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if extractOnly {
		for i, text := range texts {
			if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s %s", cli.ReceiptIcon, args[i]))); err != nil {
				return err
			}
			if err := cli.RenderLineItems(out, a.engine.ExtractLineItems(text)); err != nil {
				return err
			}
		}
		return nil
	}

	results, err := matchTickets(cmd.Context(), a.engine, texts, concurrency, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	for i, result := range results {
		if err := cli.RenderTicketMatch(out, args[i], result); err != nil {
			return err
		}
	}

	if review {
		return reviewMatches(cmd.Context(), a.engine, results, cmd.InOrStdin(), out)
	}
	return nil
}

func readTickets(stdin io.Reader, paths []string) ([]string, error) {
	texts := make([]string, len(paths))
	for i, path := range paths {
		text, err := readTicket(stdin, path)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return texts, nil
}

func readTicket(stdin io.Reader, path string) (string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // user-supplied ticket path
		if err != nil {
			return "", fmt.Errorf("failed to open ticket: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxTicketBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read ticket %s: %w", path, err)
	}
	if len(data) > maxTicketBytes {
		return "", common.NewUserError(fmt.Sprintf("ticket %s is larger than %d bytes", path, maxTicketBytes), nil)
	}
	return string(data), nil
}

// matchTickets matches every ticket text, running up to concurrency
// tickets at a time. Results keep the input order.
func matchTickets(ctx context.Context, e *engine.Engine, texts []string, concurrency int, progressOut io.Writer) ([]model.TicketMatch, error) {
	results := make([]model.TicketMatch, len(texts))

	var bar *progressbar.ProgressBar
	if len(texts) > 1 {
		bar = progressbar.NewOptions(len(texts),
			progressbar.OptionSetWriter(progressOut),
			progressbar.OptionSetDescription("Matching tickets"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.MatchTicket(text)
			if bar != nil {
				if err := bar.Add(1); err != nil {
					slog.Debug("Failed to update progress bar", "error", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results, nil
}

// reviewMatches asks about every item a stored association did not
// resolve and records the answers.
func reviewMatches(ctx context.Context, e *engine.Engine, results []model.TicketMatch, in io.Reader, out io.Writer) error {
	var pending []model.MatchResult
	for _, r := range results {
		for _, m := range r.Matches {
			if cli.NeedsReview(&m) {
				pending = append(pending, m)
			}
		}
	}

	if len(pending) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatSuccess("Every item is already confirmed"))
		return err
	}

	handler := cli.NewInterruptHandler(out, "Answers given so far are saved.")
	ctx, stop := handler.HandleInterrupts(ctx)
	defer stop()

	prompter := cli.NewPrompter(in, out)
	prompter.SetTotal(len(pending))

	for _, m := range pending {
		decision, err := prompter.Review(ctx, m)
		if err != nil {
			if handler.WasInterrupted() || errors.Is(err, cli.ErrInputCancelled) || errors.Is(err, cli.ErrInputTerminated) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if decision.Skipped {
			continue
		}

		if err := e.RecordAssociation(ctx, decision.ItemText, decision.ProductID); err != nil {
			if errors.Is(err, common.ErrProductNotFound) {
				if _, werr := fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("Unknown product %s, item skipped", *decision.ProductID))); werr != nil {
					return werr
				}
				continue
			}
			return err
		}
	}

	prompter.ShowCompletion()
	return nil
}
