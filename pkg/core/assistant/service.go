package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"subsea_intel/pkg/core/prompt"
	"subsea_intel/pkg/core/report"
	"subsea_intel/pkg/core/storage"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// ErrEmptyConversation is returned when a request carries no message text.
var ErrEmptyConversation = errors.New("conversation has no message")

// SignedURLTTL is how long a report download link stays valid.
const SignedURLTTL = time.Hour

// Request is one chat turn.
type Request struct {
	Messages  []models.ChatMessage `json:"messages"`
	UserID    string               `json:"user_id,omitempty"`
	UserEmail string               `json:"user_email,omitempty"`
}

// ReportArtifact describes a stored report PDF.
type ReportArtifact struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Markdown    string `json:"markdown"`
	FileName    string `json:"file_name"`
	StoragePath string `json:"storage_path"`
	URL         string `json:"url,omitempty"`
	Pages       int    `json:"pages"`
}

// DataCoverage tells the caller what the answer was based on.
type DataCoverage struct {
	FromYear *int           `json:"from_year,omitempty"`
	ToYear   *int           `json:"to_year,omitempty"`
	Counts   map[string]int `json:"counts"`
	Included map[string]int `json:"included"`
	Warnings []string       `json:"warnings,omitempty"`
	Fallback bool           `json:"fallback"`
}

type Response struct {
	Answer       string           `json:"answer"`
	Report       *ReportArtifact  `json:"report,omitempty"`
	FollowUps    []string         `json:"follow_ups"`
	Plan         models.AgentPlan `json:"plan"`
	DataCoverage DataCoverage     `json:"data_coverage"`
}

// Options configures a Service.
type Options struct {
	ReportBucket string
}

type Service struct {
	planner   *Planner
	builder   *ContextBuilder
	generator *Generator
	store     store.RowStore
	files     storage.Storage
	bucket    string
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(runner PromptRunner, prompts *prompt.Registry, rs store.RowStore, files storage.Storage, log *logger.Logger, opts Options) *Service {
	log = logger.OrNop(log).With("component", "assistant")
	if prompts == nil {
		prompts = prompt.NewDefaultRegistry()
	}
	bucket := opts.ReportBucket
	if bucket == "" {
		bucket = "reports"
	}
	return &Service{
		planner:   NewPlanner(runner, prompts, log),
		builder:   NewContextBuilder(rs, log),
		generator: NewGenerator(runner, prompts, log),
		store:     rs,
		files:     files,
		bucket:    bucket,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// RunAgentConversation answers one chat turn. Report requests also produce
// a stored PDF; failures while storing it become warnings and the answer is
// still returned.
func (s *Service) RunAgentConversation(ctx context.Context, req Request) (Response, error) {
	latest := LatestUserMessage(req.Messages)
	if latest == "" {
		return Response{}, ErrEmptyConversation
	}
	log := s.log.With("user_id", req.UserID)
	start := s.now()

	plan := s.planner.BuildPlan(ctx, req.Messages)
	log.Info("plan built", "intent", plan.Intent, "language", plan.Language, "tables", len(plan.IncludeTables), "keywords", len(plan.ProjectKeywords))

	sum := s.builder.BuildContext(ctx, plan)
	ans := s.generator.Generate(ctx, plan, sum, req.Messages)

	resp := Response{
		Answer:    ans.Answer,
		FollowUps: ans.FollowUps,
		Plan:      plan,
		DataCoverage: DataCoverage{
			FromYear: sum.FromYear,
			ToYear:   sum.ToYear,
			Counts:   sum.Counts,
			Included: sum.Included,
			Warnings: sum.Warnings,
			Fallback: ans.Fallback,
		},
	}
	if resp.FollowUps == nil {
		resp.FollowUps = []string{}
	}

	if plan.Intent == models.IntentReport && strings.TrimSpace(ans.ReportMarkdown) != "" {
		art, warnings := s.storeReport(ctx, log, req, latest, plan, ans)
		resp.Report = art
		resp.DataCoverage.Warnings = append(resp.DataCoverage.Warnings, warnings...)
	}

	log.Info("agent turn completed", "report", resp.Report != nil, "fallback", ans.Fallback, "elapsed", s.now().Sub(start).String())
	return resp, nil
}

var unsafePathPart = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (s *Service) storeReport(ctx context.Context, log *logger.Logger, req Request, requestText string, plan models.AgentPlan, ans Answer) (*ReportArtifact, []string) {
	now := s.now().UTC()
	id := s.newID()
	title := ans.ReportTitle
	if title == "" {
		title = reportTitle(plan)
	}

	subtitle := periodLabel(plan.FromYear, plan.ToYear)
	if scope := plan.ReportScope; scope != "" && scope != requestText {
		if subtitle != "" {
			scope += " · " + subtitle
		}
		subtitle = scope
	}
	pdf, pages, err := report.Render(report.Document{
		Title:       title,
		Subtitle:    subtitle,
		RequestText: requestText,
		Markdown:    ans.ReportMarkdown,
		GeneratedAt: now,
	})
	if err != nil {
		log.Error("report render failed", "error", err)
		return nil, []string{"The report PDF could not be generated: " + err.Error()}
	}

	owner := unsafePathPart.ReplaceAllString(req.UserID, "_")
	if owner == "" {
		owner = "anonymous"
	}
	art := &ReportArtifact{
		ID:          id,
		Title:       title,
		Summary:     ans.ReportSummary,
		Markdown:    ans.ReportMarkdown,
		FileName:    report.FileName(title, now),
		StoragePath: fmt.Sprintf("%s/%d/%s.pdf", owner, now.Year(), id),
		Pages:       pages,
	}

	if err := s.files.Upload(ctx, s.bucket, art.StoragePath, pdf, "application/pdf"); err != nil {
		log.Error("report upload failed", "path", art.StoragePath, "error", err)
		return nil, []string{"The report PDF could not be stored; the answer is still available."}
	}

	var warnings []string
	rec := models.AiReport{
		ID:             id,
		RequestText:    requestText,
		Title:          title,
		Summary:        ans.ReportSummary,
		ReportMarkdown: ans.ReportMarkdown,
		PeriodFrom:     plan.FromYear,
		PeriodTo:       plan.ToYear,
		Filters: map[string]interface{}{
			"project_keywords": plan.ProjectKeywords,
			"countries":        plan.Countries,
			"operators":        plan.Operators,
			"include_tables":   plan.IncludeTables,
			"language":         plan.Language,
		},
		StoragePath: art.StoragePath,
		FileName:    art.FileName,
		CreatedAt:   now,
	}
	if req.UserID != "" {
		uid := req.UserID
		rec.UserID = &uid
	}
	if _, err := s.store.Upsert(ctx, models.TableAiReports, []store.Row{rec.ToRow()}, models.ConflictColumns[models.TableAiReports]); err != nil {
		log.Warn("report metadata not saved", "report_id", id, "error", err)
		warnings = append(warnings, "The report was created but could not be added to the report history.")
	}

	url, err := s.files.SignedURL(ctx, s.bucket, art.StoragePath, SignedURLTTL)
	if err != nil {
		log.Warn("signed url failed", "report_id", id, "error", err)
		warnings = append(warnings, "A download link could not be created for the report.")
	}
	art.URL = url
	log.Info("report stored", "report_id", id, "pages", pages, "bytes", len(pdf))
	return art, warnings
}
