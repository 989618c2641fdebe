// Package importer orchestrates a full migration run: discovery, page
// listing, content transformation and vault writes, strictly sequentially.
// The remote service enforces global rate limits and folder-before-file
// ordering is trivial to guarantee without concurrent fan-out.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/notebridge/internal/entities"
	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/hierarchy"
	"github.com/mrlokans/notebridge/internal/logger"
	"github.com/mrlokans/notebridge/internal/progress"
	"github.com/mrlokans/notebridge/internal/transform"
	"github.com/mrlokans/notebridge/internal/utils"
	"github.com/mrlokans/notebridge/internal/vault"
)

// StateStore persists the imported-page set and run history. Satisfied by
// the database state repository.
type StateStore interface {
	Has(pageID string) (bool, error)
	MarkImported(pageID, runID, vaultPath string) error
	StartRun(runID string, totalPages int) error
	UpdateRun(runID string, succeeded, failed, skipped int, currentPage string) error
	CompleteRun(runID string, status entities.RunStatus, errorMsg string) error
}

// Options tunes one import run.
type Options struct {
	BaseURL                string
	SectionIDs             []string // empty imports every discovered section
	NoSkip                 bool     // re-import pages the state store already has
	MaxConsecutiveFailures int
	IncludeIncompatible    bool
	AttachmentDir          string // subfolder name for page attachments
}

// Summary is the outcome of one run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Aborted   bool
	Reason    string
}

// Runner executes import runs. One Runner per run; it is not reused.
type Runner struct {
	client      *graph.Client
	indexer     *hierarchy.Indexer
	transformer *transform.Transformer
	vault       *vault.Vault
	state       StateStore
	reporter    progress.Reporter
	opts        Options

	// Note paths claimed during this run, so sibling pages sharing a
	// title never write to the same file.
	claimed map[string]bool
}

// NewRunner wires an import run together.
func NewRunner(
	client *graph.Client,
	indexer *hierarchy.Indexer,
	transformer *transform.Transformer,
	v *vault.Vault,
	state StateStore,
	reporter progress.Reporter,
	opts Options,
) *Runner {
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 5
	}
	if opts.AttachmentDir == "" {
		opts.AttachmentDir = "attachments"
	}
	return &Runner{
		client:      client,
		indexer:     indexer,
		transformer: transformer,
		vault:       v,
		state:       state,
		reporter:    reporter,
		opts:        opts,
		claimed:     make(map[string]bool),
	}
}

// pageWork is one page queued for processing, with its section context.
type pageWork struct {
	section *hierarchy.Node
	page    hierarchy.PageRef
}

// Run performs a full import. Abort conditions (stall, consecutive-failure
// threshold, cancellation) mark every remaining page as skipped and still
// report progress as complete, so callers never see a stuck indicator.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	summary := &Summary{RunID: runID}

	r.reporter.Status("Discovering notebooks...")
	if _, err := r.indexer.Discover(ctx); err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	queue, err := r.collectPages(ctx)
	if err != nil {
		return nil, err
	}
	summary.Total = len(queue)

	if err := r.state.StartRun(runID, summary.Total); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	r.reporter.Status(fmt.Sprintf("Importing %d pages...", summary.Total))

	health := r.client.Health()
	for i, work := range queue {
		if summary.Aborted || r.cancelled(ctx) {
			if !summary.Aborted {
				summary.Aborted = true
				summary.Reason = "import cancelled"
			}
			summary.Skipped++
			r.reporter.ReportPageSkipped(work.page.ID, work.page.Title, summary.Reason)
			continue
		}

		if !r.opts.NoSkip {
			imported, err := r.state.Has(work.page.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to read import state: %w", err)
			}
			if imported {
				r.claimSkippedPage(work.page)
				summary.Skipped++
				r.reporter.ReportPageSkipped(work.page.ID, work.page.Title, "already imported")
				r.reporter.ReportProgress(i+1, summary.Total)
				continue
			}
		}

		err := r.importPage(ctx, runID, work)
		switch {
		case err == nil:
			summary.Succeeded++
			health.RecordPageSuccess()
			r.reporter.ReportPageSuccess(work.page.ID, work.page.Title)

		case r.cancelled(ctx):
			summary.Aborted = true
			summary.Reason = "import cancelled"
			summary.Skipped++
			r.reporter.ReportPageSkipped(work.page.ID, work.page.Title, summary.Reason)

		case errors.Is(err, graph.ErrStalled):
			summary.Aborted = true
			summary.Reason = "no successful fetch within the stall timeout"
			summary.Failed++
			r.reporter.ReportPageFailed(work.page.ID, work.page.Title, err.Error())

		default:
			summary.Failed++
			r.reporter.ReportPageFailed(work.page.ID, work.page.Title, err.Error())
			if failures := health.RecordPageFailure(); failures >= r.opts.MaxConsecutiveFailures {
				summary.Aborted = true
				summary.Reason = fmt.Sprintf("aborted after %d consecutive page failures", failures)
			}
		}

		r.reporter.ReportProgress(i+1, summary.Total)
		if err := r.state.UpdateRun(runID, summary.Succeeded, summary.Failed, summary.Skipped, work.page.Title); err != nil {
			logger.Warn("failed to update run record", logger.Fields{"run": runID, "error": err.Error()})
		}
	}

	r.reporter.ReportProgress(summary.Total, summary.Total)
	r.finishRun(summary)
	r.reporter.Done()
	return summary, nil
}

// collectPages lists pages for every selected section and queues them in
// section order, then page order.
func (r *Runner) collectPages(ctx context.Context) ([]pageWork, error) {
	selected := make(map[string]bool, len(r.opts.SectionIDs))
	for _, id := range r.opts.SectionIDs {
		selected[id] = true
	}

	var queue []pageWork
	for _, section := range r.indexer.Forest().Sections() {
		if len(selected) > 0 && !selected[section.ID] {
			continue
		}

		url := strings.TrimRight(r.opts.BaseURL, "/") + "/me/onenote/sections/" + section.ID +
			"/pages?$select=id,title,level,order,createdDateTime,lastModifiedDateTime,contentUrl"
		values, err := r.client.GetPaginated(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to list pages of section %q: %w", section.Name, err)
		}
		pages, err := graph.DecodeList[graph.Page](values)
		if err != nil {
			return nil, fmt.Errorf("failed to decode pages of section %q: %w", section.Name, err)
		}

		refs := make([]hierarchy.PageRef, 0, len(pages))
		for _, p := range pages {
			refs = append(refs, hierarchy.PageRef{
				ID:         p.ID,
				Title:      p.Title,
				Level:      p.Level,
				Order:      p.Order,
				ContentURL: p.ContentURL,
				Created:    p.CreatedDateTime,
				Modified:   p.LastModifiedDateTime,
			})
		}
		if err := r.indexer.SetPages(section.ID, refs); err != nil {
			return nil, err
		}

		for _, ref := range refs {
			queue = append(queue, pageWork{section: section, page: ref})
		}
	}
	return queue, nil
}

// importPage migrates one page: resolve its folder, fetch the payload,
// transform, and write the note. Attachment failures are already contained
// inside the transformer; everything returned here is a page-level failure.
func (r *Runner) importPage(ctx context.Context, runID string, work pageWork) error {
	folder, err := r.indexer.ResolvePath(work.page.ID)
	if err != nil {
		return fmt.Errorf("cannot place page: %w", err)
	}
	notePath := r.claimNotePath(folder, work.page.Title)
	if err := r.vault.EnsureFolder(folder); err != nil {
		return err
	}

	raw, err := r.client.GetText(ctx, contentURL(work.page))
	if err != nil {
		return fmt.Errorf("failed to fetch page content: %w", err)
	}

	out, err := r.transformer.Transform(ctx, raw, transform.PageMeta{
		ID:            work.page.ID,
		Title:         work.page.Title,
		Folder:        folder,
		AttachmentDir: folder + "/" + r.opts.AttachmentDir,
	})
	if err != nil {
		return err
	}

	if err := r.vault.WriteNote(notePath, composeNote(work.page, out)); err != nil {
		return err
	}

	if err := r.state.MarkImported(work.page.ID, runID, notePath); err != nil {
		return fmt.Errorf("failed to persist import state: %w", err)
	}
	return nil
}

// claimNotePath reserves a note path for this run. Sibling pages sharing a
// title get numbered variants; claims happen in section and page order on
// every run, so a resumed run assigns the same paths.
func (r *Runner) claimNotePath(folder, title string) string {
	base := folder + "/" + utils.SanitizeFilename(title)
	notePath := base + ".md"
	for n := 1; r.claimed[notePath]; n++ {
		notePath = fmt.Sprintf("%s %d.md", base, n)
	}
	r.claimed[notePath] = true
	return notePath
}

// claimSkippedPage reserves the path a previously imported page occupies,
// so a same-titled sibling imported later in this run cannot overwrite it.
func (r *Runner) claimSkippedPage(page hierarchy.PageRef) {
	folder, err := r.indexer.ResolvePath(page.ID)
	if err != nil {
		return
	}
	r.claimNotePath(folder, page.Title)
}

func (r *Runner) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || r.reporter.IsCancelled()
}

func (r *Runner) finishRun(summary *Summary) {
	status := entities.RunStatusCompleted
	if summary.Aborted {
		status = entities.RunStatusAborted
		r.reporter.Status("Import aborted: " + summary.Reason)
	}
	if err := r.state.CompleteRun(summary.RunID, status, summary.Reason); err != nil {
		logger.Warn("failed to finalize run record", logger.Fields{"run": summary.RunID, "error": err.Error()})
	}
}

// contentURL requests the page body with the ink side-channel included.
func contentURL(page hierarchy.PageRef) string {
	sep := "?"
	if strings.Contains(page.ContentURL, "?") {
		sep = "&"
	}
	return page.ContentURL + sep + "includeInkML=true"
}

// composeNote prefixes the markdown body with the page's metadata.
func composeNote(page hierarchy.PageRef, out *transform.Output) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", page.Title)
	if !page.Created.IsZero() {
		fmt.Fprintf(&b, "created: %s\n", page.Created.Format(time.RFC3339))
	}
	if !page.Modified.IsZero() {
		fmt.Fprintf(&b, "updated: %s\n", page.Modified.Format(time.RFC3339))
	}
	b.WriteString("---\n\n")
	b.WriteString(out.Markdown)
	return b.String()
}
