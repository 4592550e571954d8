package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/schollz/progressbar/v3"
)

// ErrInputTerminated is returned when input ends in the middle of a review.
var ErrInputTerminated = errors.New("input terminated")

// Decision is the reviewer's verdict on one ticket item.
type Decision struct {
	ProductID *string
	ItemText  string
	Skipped   bool
}

// ReviewStats summarizes a review session.
type ReviewStats struct {
	Duration  time.Duration
	Reviewed  int
	Confirmed int
	Corrected int
	Skipped   int
}

// Prompter asks the user to confirm or correct ticket item matches.
type Prompter struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	progressBar *progressbar.ProgressBar
	stats       ReviewStats
	total       int
	statsMutex  sync.RWMutex
}

// NewPrompter creates a prompter with the given reader and writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader:    NewLineReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// NeedsReview reports whether a result should be shown to the user.
// Items resolved by a stored association are already confirmed.
func NeedsReview(r *model.MatchResult) bool {
	return r.Source != model.MatchSourceAssociation
}

// SetTotal sets the number of items to review and shows a progress bar.
func (p *Prompter) SetTotal(total int) {
	p.total = total
	p.progressBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reviewing items...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// candidates lists the products offered for a result: the match, its
// alternates, then the price-proximity suggestions.
func candidates(r *model.MatchResult) []model.Product {
	var out []model.Product
	if r.MatchedProduct != nil {
		out = append(out, *r.MatchedProduct)
	}
	out = append(out, r.Alternates...)
	return append(out, r.Suggestions...)
}

// Review shows one result and asks which product the item refers to.
func (p *Prompter) Review(ctx context.Context, result model.MatchResult) (Decision, error) {
	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	default:
	}

	p.updateProgress()

	options := candidates(&result)
	if _, err := fmt.Fprintln(p.writer, RenderBox("Ticket Item Review", p.formatItem(&result, options))); err != nil {
		return Decision{}, fmt.Errorf("failed to write review box: %w", err)
	}

	validChoices := make([]string, 0, len(options)+2)
	for i := range options {
		validChoices = append(validChoices, strconv.Itoa(i+1))
	}
	validChoices = append(validChoices, "i", "s")

	choice, err := p.promptChoice(ctx, "Choice", validChoices)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{ItemText: result.IngredientName}
	switch choice {
	case "s":
		decision.Skipped = true
		p.incrementStats(func(s *ReviewStats) { s.Skipped++ })
	case "i":
		id, err := p.promptProductID(ctx)
		if err != nil {
			return Decision{}, err
		}
		decision.ProductID = &id
		p.incrementStats(func(s *ReviewStats) { s.Corrected++ })
	default:
		n, _ := strconv.Atoi(choice)
		id := options[n-1].ID
		decision.ProductID = &id
		if n == 1 && result.Matched() {
			p.incrementStats(func(s *ReviewStats) { s.Confirmed++ })
		} else {
			p.incrementStats(func(s *ReviewStats) { s.Corrected++ })
		}
	}

	return decision, nil
}

func (p *Prompter) formatItem(r *model.MatchResult, options []model.Product) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s  %s\n", ReceiptIcon, BoldStyle.Render(r.IngredientName), FormatOptionalPrice(r.TicketPrice)))
	switch {
	case r.Matched():
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("Matched with score %d", r.MatchScore)))
	case r.NeedsReview:
		b.WriteString(WarningStyle.Render("No name match; suggestions are ranked by price"))
	default:
		b.WriteString(ErrorStyle.Render("No match found"))
	}
	b.WriteString("\n\n")

	for i := range options {
		o := &options[i]
		b.WriteString(fmt.Sprintf("  [%d] %s %s %s\n", i+1, o.Name, formatProductPrice(o), SubtleStyle.Render(o.ID)))
	}
	b.WriteString("  [I] Enter a product id\n")
	b.WriteString("  [S] Skip this item")

	return b.String()
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputTerminated
			}
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) promptProductID(ctx context.Context) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt("Product id")); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputTerminated
			}
			return "", err
		}
		if input != "" {
			return input, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Product id cannot be empty")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) updateProgress() {
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *Prompter) incrementStats(update func(*ReviewStats)) {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	p.stats.Reviewed++
	update(&p.stats)
}

// Stats returns statistics about the review session.
func (p *Prompter) Stats() ReviewStats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

// ShowCompletion displays the review summary.
func (p *Prompter) ShowCompletion() {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}

	stats := p.Stats()
	summary := fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Items reviewed: %d\n", stats.Reviewed) +
		fmt.Sprintf("  • Confirmed: %d\n", stats.Confirmed) +
		fmt.Sprintf("  • Corrected: %d\n", stats.Corrected) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Review Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}
