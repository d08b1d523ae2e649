package tweets

import (
	"context"
	"errors"
	"log/slog"
)

// Assembler turns a captured TweetDetail body into a Tweet. It performs no
// I/O and never mutates its input, so one Assembler may serve any number of
// goroutines.
type Assembler struct {
	classifier        Classifier
	unavailableStatus int
	log               *slog.Logger
}

// NewAssembler creates an Assembler from cfg.
func NewAssembler(cfg Config) *Assembler {
	cfg.defaults()
	return &Assembler{
		classifier:        cfg.Classifier,
		unavailableStatus: cfg.UnavailableStatus,
		log:               cfg.Logger,
	}
}

// Assemble builds the tweet id from body in strict mode: the first failure
// of any stage, including a requested field, aborts the build.
func (a *Assembler) Assemble(body []byte, id string, fields FieldSet) (*Tweet, error) {
	t, errs := a.assemble(body, id, fields, true)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return t, nil
}

// AssemblePartial builds the tweet id from body, tolerating field failures.
// Locating, tombstone and base failures still return a nil tweet with a
// single error; failing fields are left unset and reported one error each.
func (a *Assembler) AssemblePartial(body []byte, id string, fields FieldSet) (*Tweet, []*Error) {
	return a.assemble(body, id, fields, false)
}

func (a *Assembler) assemble(body []byte, id string, fields FieldSet, strict bool) (*Tweet, []*Error) {
	log := a.log.With(slog.String("id", id))

	entry := a.locate(log, body, id)
	if entry == nil {
		log.Debug("tweet entry not located")
		return nil, []*Error{notFoundError(id)}
	}

	result, err := entry.result()
	if err != nil {
		log.Warn("undecodable tweet entry", slog.String("entry_id", entry.EntryID), slog.Any("error", err))
		return nil, []*Error{NewError(ReasonServerError, "Error decoding tweet object.", map[string]any{
			"id":       id,
			"entry_id": entry.EntryID,
			"error":    err.Error(),
		})}
	}
	result = unwrap(result)

	if ts, ok := tombstoneOf(result); ok {
		reason := a.classifier.Classify(ts)
		e := tombstoneError(id, ts, reason)
		if reason == ReasonUnavailable {
			e.Status = a.unavailableStatus
		}
		log.Info("tweet is tombstoned", slog.String("reason", string(reason)), slog.String("typename", ts.TypeName))
		return nil, []*Error{e}
	}

	t := &Tweet{}
	if e := extractBase(id, result, t); e != nil {
		log.Warn("base fields missing", slog.Any("data", e.Data))
		return nil, []*Error{e}
	}

	var errs []*Error
	for _, f := range fields.Fields() {
		err := extractors[f](result, t)
		if err == nil {
			continue
		}
		e := fieldFailure(id, err)
		log.Warn("field extraction failed", slog.String("field", string(f)), slog.String("detail", e.Detail))
		if strict {
			return nil, []*Error{e}
		}
		errs = append(errs, e)
	}
	return t, errs
}

// locate decodes body and finds the entry for id. Bodies that do not decode
// count as not located: the browser also captures preflight and error
// responses for the same endpoint.
func (a *Assembler) locate(log *slog.Logger, body []byte, id string) *timelineEntry {
	if len(body) == 0 {
		return nil
	}
	instructions, err := decodeInstructions(body)
	if err != nil {
		log.Debug("skip undecodable TweetDetail body", slog.Any("error", err))
		return nil
	}
	return locateEntry(instructions, id)
}

func notFoundError(id string) *Error {
	return NewError(ReasonNotFound,
		"Tweet data was not found in the conversation. Tweet may not exist.",
		map[string]any{"id": id})
}

func fieldFailure(id string, err error) *Error {
	data := map[string]any{"id": id}
	var fe *fieldError
	if errors.As(err, &fe) {
		data["field"] = string(fe.Field)
		if fe.Value != nil {
			data["value"] = fe.Value
		}
		return NewError(ReasonServerError, fe.Error(), data)
	}
	return NewError(ReasonServerError, err.Error(), data)
}

// Builder fetches tweets from a Source and assembles them.
type Builder struct {
	src Source
	asm *Assembler
	cfg Config
}

// NewBuilder creates a Builder reading payloads from src.
func NewBuilder(src Source, cfg Config) *Builder {
	cfg.defaults()
	return &Builder{
		src: src,
		asm: NewAssembler(cfg),
		cfg: cfg,
	}
}

// Assembler returns the pure assembler used by b.
func (b *Builder) Assembler() *Assembler {
	return b.asm
}

// Build fetches and assembles tweet id in strict mode. Errors are always *Error.
func (b *Builder) Build(ctx context.Context, id string, fields FieldSet) (*Tweet, error) {
	body, err := b.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.asm.Assemble(body, id, fields)
}

// BuildPartial fetches and assembles tweet id, tolerating field failures.
func (b *Builder) BuildPartial(ctx context.Context, id string, fields FieldSet) (*Tweet, []*Error) {
	body, err := b.fetch(ctx, id)
	if err != nil {
		return nil, []*Error{err}
	}
	return b.asm.AssemblePartial(body, id, fields)
}

func (b *Builder) fetch(ctx context.Context, id string) ([]byte, *Error) {
	body, err := b.src.TweetDetail(ctx, id)
	if err != nil {
		te := AsError(err, id)
		if !errors.Is(err, ErrNotCaptured) {
			b.cfg.Logger.Warn("tweet detail fetch failed", slog.String("id", id), slog.Any("error", err))
		}
		return nil, te
	}
	return body, nil
}
