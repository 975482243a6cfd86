package distiller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/ports"
)

// DefaultLanguage is the translation target when none is configured.
const DefaultLanguage = "Hiligaynon"

const summaryInstruction = `You are a news summarization expert writing for SMS alerts.
Write exactly 2 sentences, at most 140 characters in total.
State what happened, when, where and why it matters.
Use direct, active language without filler words or adjectives.
Reply with the summary only.`

const translationInstruction = `You are a professional %[1]s translator.
Translate English news summaries into natural, conversational %[1]s that native speakers use every day.
Preserve every fact of the original. Never cut a sentence in half; every sentence must be complete.
Stay within 160 characters; rephrase concisely rather than dropping facts.
Keep agency acronyms and place names (PAGASA, DOH, NDRRMC, Visayas) as they are.
Reply with ONLY the %[1]s translation: no explanations, no English, no quotation marks.`

const referenceInstruction = `You are a professional %s translator. Provide the most accurate, natural translation possible.
Reply with the translation only.`

// quoteChars are stripped from both ends of a translation.
const quoteChars = "\"'“”‘’"

// Distiller turns article content into an SMS-sized message in the target language.
type Distiller struct {
	generator ports.TextGenerator
	language  string
	logger    *slog.Logger
}

// New wires the text-generation collaborator; language defaults to Hiligaynon.
func New(generator ports.TextGenerator, language string, logger *slog.Logger) *Distiller {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return &Distiller{generator: generator, language: language, logger: logger}
}

// Summarize produces a two-sentence English summary of at most 140 characters.
func (d *Distiller) Summarize(ctx context.Context, content string) (string, error) {
	text, err := PlainText(content)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("summarize: %w", domain.ErrEmptyContent)
	}

	d.debug("summarize", "content_chars", runeLen(text))

	reply, err := d.complete(ctx, summaryInstruction, "Create a 2-sentence summary (max 140 characters):\n\n"+text)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	summary := strings.TrimSpace(reply)
	if runeLen(summary) > SummaryLimit {
		d.warn("summary too long, trimming", "chars", runeLen(summary))
		summary = truncate(summary, summaryCut) + Ellipsis
	}

	d.debug("summary created", "summary", summary, "chars", runeLen(summary))
	return summary, nil
}

// Translate renders summary in the target language and fits it into one SMS.
func (d *Distiller) Translate(ctx context.Context, summary string) (domain.Translation, error) {
	system := fmt.Sprintf(translationInstruction, d.language)
	user := fmt.Sprintf("Translate this English summary to natural, conversational %s (maximum %d characters, keep complete sentences):\n\n%s",
		d.language, SMSLimit, summary)

	translation, err := d.translate(ctx, system, user)
	if err != nil {
		return domain.Translation{}, fmt.Errorf("translate: %w", err)
	}
	return translation, nil
}

// TranslateReference produces an independent second translation of summary.
// It only serves as the reference for self-consistency scoring.
func (d *Distiller) TranslateReference(ctx context.Context, summary string) (domain.Translation, error) {
	system := fmt.Sprintf(referenceInstruction, d.language)
	user := fmt.Sprintf("Translate to %s:\n\n%s", d.language, summary)

	translation, err := d.translate(ctx, system, user)
	if err != nil {
		return domain.Translation{}, fmt.Errorf("translate reference: %w", err)
	}
	return translation, nil
}

func (d *Distiller) translate(ctx context.Context, system, user string) (domain.Translation, error) {
	raw, err := d.complete(ctx, system, user)
	if err != nil {
		return domain.Translation{}, err
	}

	text := strings.Trim(strings.TrimSpace(raw), quoteChars)
	if text == "" {
		return domain.Translation{}, fmt.Errorf("%w: empty translation", domain.ErrUpstreamUnavailable)
	}

	fitted, trimmed := FitSMS(text, raw)
	if trimmed {
		d.warn("translation exceeds sms limit, trimmed", "raw_chars", runeLen(text), "chars", runeLen(fitted))
	}

	return domain.Translation{Text: fitted, Raw: raw, Trimmed: trimmed}, nil
}

func (d *Distiller) complete(ctx context.Context, system, user string) (string, error) {
	if d.generator == nil {
		return "", fmt.Errorf("%w: text generator is not configured", domain.ErrUpstreamUnavailable)
	}

	reply, err := d.generator.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty reply", domain.ErrUpstreamUnavailable)
	}
	return reply, nil
}

func (d *Distiller) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Distiller) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
