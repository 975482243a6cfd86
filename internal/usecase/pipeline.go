package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"NewsBroadcaster/internal/distiller"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/ports"
	"NewsBroadcaster/internal/quality"
)

// Distiller turns article content into an SMS in the target language.
type Distiller interface {
	Summarize(ctx context.Context, content string) (string, error)
	Translate(ctx context.Context, summary string) (domain.Translation, error)
	TranslateReference(ctx context.Context, summary string) (domain.Translation, error)
}

// PipelineDeps wires all driven adapters into the broadcast pipeline.
type PipelineDeps struct {
	Articles    ports.ArticleStore
	Distiller   Distiller
	Broadcaster *Broadcaster
	Notifier    ports.Notifier
	Stages      ports.StageObserver
	Logger      *slog.Logger
	// ScoreQuality adds a self-consistency score to every article broadcast.
	ScoreQuality bool
}

// Pipeline implements the article and announcement broadcast workflows.
type Pipeline struct {
	articles     ports.ArticleStore
	distiller    Distiller
	broadcaster  *Broadcaster
	notifier     ports.Notifier
	stages       ports.StageObserver
	logger       *slog.Logger
	scoreQuality bool
}

// Report describes one message lifecycle.
type Report struct {
	ArticleID   int64
	Title       string
	Summary     string
	Translation domain.Translation
	Quality     *domain.QualityScore
	Gateway     gateway.Kind
	Result      domain.BroadcastResult
	Stage       domain.Stage
}

// Preview is a dry run of the distillation stages.
type Preview struct {
	Article     domain.Article
	Summary     string
	Translation domain.Translation
	Reference   domain.Translation
	Quality     domain.QualityScore
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		articles:     deps.Articles,
		distiller:    deps.Distiller,
		broadcaster:  deps.Broadcaster,
		notifier:     deps.Notifier,
		stages:       deps.Stages,
		logger:       deps.Logger,
		scoreQuality: deps.ScoreQuality,
	}
}

// BroadcastArticle summarizes, translates and broadcasts one article.
// Any failure before dispatch leaves the report in StageAborted.
func (p *Pipeline) BroadcastArticle(ctx context.Context, articleID int64, selector domain.RecipientSelector, kind gateway.Kind, progress Progress) (Report, error) {
	report := Report{ArticleID: articleID, Gateway: kind, Stage: domain.StageAborted}
	defer func() { p.observe(report.Stage) }()

	if p.articles == nil || p.distiller == nil || p.broadcaster == nil {
		return report, errors.New("pipeline misconfigured")
	}

	article, err := p.articles.ArticleByID(ctx, articleID)
	if err != nil {
		return report, fmt.Errorf("load article: %w", err)
	}
	report.Title = article.Title

	summary, err := p.distiller.Summarize(ctx, article.Content)
	if err != nil {
		return report, fmt.Errorf("summarize article %d: %w", articleID, err)
	}
	report.Summary = summary
	report.Stage = domain.StageDrafted

	translation, err := p.distiller.Translate(ctx, summary)
	if err != nil {
		report.Stage = domain.StageAborted
		return report, fmt.Errorf("translate article %d: %w", articleID, err)
	}
	report.Translation = translation
	report.Stage = domain.StageTranslated

	if n := utf8.RuneCountInString(translation.Text); n > distiller.SMSLimit {
		report.Stage = domain.StageAborted
		return report, fmt.Errorf("validate length: %w (%d characters)", domain.ErrLengthOverflow, n)
	}
	if translation.Trimmed {
		p.warn("translation trimmed to fit one sms", "article_id", articleID, "error", domain.ErrLengthOverflow)
	}
	report.Stage = domain.StageLengthValidated

	if p.scoreQuality {
		report.Quality = p.score(ctx, summary, translation.Text)
	}

	return p.dispatch(ctx, report, BroadcastRequest{
		ArticleID: articleID,
		Message:   translation.Text,
		Selector:  selector,
		Gateway:   kind,
	}, progress)
}

// Announce broadcasts an operator-written message as is.
func (p *Pipeline) Announce(ctx context.Context, message string, selector domain.RecipientSelector, kind gateway.Kind, progress Progress) (Report, error) {
	report := Report{ArticleID: domain.AnnouncementArticleID, Gateway: kind, Stage: domain.StageAborted}
	defer func() { p.observe(report.Stage) }()

	if p.broadcaster == nil {
		return report, errors.New("pipeline misconfigured")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return report, fmt.Errorf("announce: %w", domain.ErrEmptyContent)
	}
	if n := utf8.RuneCountInString(message); n > distiller.SMSLimit {
		return report, fmt.Errorf("announce: %w (%d of %d characters)", domain.ErrMessageTooLong, n, distiller.SMSLimit)
	}
	report.Translation = domain.Translation{Text: message, Raw: message}
	report.Stage = domain.StageLengthValidated

	return p.dispatch(ctx, report, BroadcastRequest{
		ArticleID: domain.AnnouncementArticleID,
		Message:   message,
		Selector:  selector,
		Gateway:   kind,
	}, progress)
}

// Preview runs the distillation stages of an article without sending anything.
func (p *Pipeline) Preview(ctx context.Context, articleID int64) (Preview, error) {
	if p.articles == nil || p.distiller == nil {
		return Preview{}, errors.New("pipeline misconfigured")
	}

	article, err := p.articles.ArticleByID(ctx, articleID)
	if err != nil {
		return Preview{}, fmt.Errorf("load article: %w", err)
	}

	summary, err := p.distiller.Summarize(ctx, article.Content)
	if err != nil {
		return Preview{}, fmt.Errorf("summarize article %d: %w", articleID, err)
	}

	preview, err := p.compare(ctx, summary)
	if err != nil {
		return Preview{}, err
	}
	preview.Article = article
	return preview, nil
}

// CheckQuality translates arbitrary English text twice and scores the agreement.
func (p *Pipeline) CheckQuality(ctx context.Context, text string) (Preview, error) {
	if p.distiller == nil {
		return Preview{}, errors.New("pipeline misconfigured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Preview{}, fmt.Errorf("check quality: %w", domain.ErrEmptyContent)
	}
	return p.compare(ctx, text)
}

func (p *Pipeline) compare(ctx context.Context, summary string) (Preview, error) {
	translation, err := p.distiller.Translate(ctx, summary)
	if err != nil {
		return Preview{}, fmt.Errorf("translate: %w", err)
	}
	reference, err := p.distiller.TranslateReference(ctx, summary)
	if err != nil {
		return Preview{}, fmt.Errorf("translate reference: %w", err)
	}

	return Preview{
		Summary:     summary,
		Translation: translation,
		Reference:   reference,
		Quality:     quality.Evaluate(reference.Text, translation.Text),
	}, nil
}

// score never fails the broadcast; a missing reference only skips the score.
func (p *Pipeline) score(ctx context.Context, summary, candidate string) *domain.QualityScore {
	reference, err := p.distiller.TranslateReference(ctx, summary)
	if err != nil {
		p.warn("quality reference failed", "error", err)
		return nil
	}
	score := quality.Evaluate(reference.Text, candidate)
	p.debug("quality scored", "score", score.Value, "label", score.Label)
	return &score
}

func (p *Pipeline) dispatch(ctx context.Context, report Report, req BroadcastRequest, progress Progress) (Report, error) {
	report.Stage = domain.StageDispatching

	result, err := p.broadcaster.Broadcast(ctx, req, progress)
	report.Result = result
	if result.Total() == 0 {
		report.Stage = domain.StageAborted
		return report, err
	}
	report.Stage = domain.StageLogged

	p.notify(ctx, report)
	return report, err
}

func (p *Pipeline) notify(ctx context.Context, report Report) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishReport(context.WithoutCancel(ctx), FormatReport(report)); err != nil {
		p.warn("operator report not delivered", "error", err)
	}
}

// FormatReport renders a report for operators.
func FormatReport(report Report) string {
	var b strings.Builder
	if report.ArticleID == domain.AnnouncementArticleID {
		b.WriteString("Announcement broadcast\n")
	} else {
		fmt.Fprintf(&b, "Article #%d broadcast: %s\n", report.ArticleID, report.Title)
	}
	fmt.Fprintf(&b, "Gateway: %s\n", report.Gateway)
	fmt.Fprintf(&b, "Message (%d chars): %s\n", utf8.RuneCountInString(report.Translation.Text), report.Translation.Text)
	if report.Quality != nil {
		fmt.Fprintf(&b, "Quality: %.2f (%s)\n", report.Quality.Value, report.Quality.Label)
	}
	fmt.Fprintf(&b, "Sent: %d, Failed: %d\n", report.Result.Sent, report.Result.Failed)
	if summary := report.Result.ErrorSummary(); summary != "" {
		b.WriteString("Errors:\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) observe(stage domain.Stage) {
	if p.stages != nil {
		p.stages.ObserveStage(stage)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
