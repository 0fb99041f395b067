// Package compiler orchestrates the full pipeline — preprocess, lex,
// parse, desugar, lower, annotate, swatch, cache-extract, codegen —
// behind one Session (§2, §4.7 state machine, §6 "compile(source,
// path) -> Program | Error"). Every stage logs at Debug with its name
// (no stage timing is recorded) the way skaffold threads a logger
// through its build graph; a uuid.UUID session id is attached to every
// log line so a
// host running several concurrent compiles (edit-while-playing) can
// tell them apart.
package compiler

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weft-lang/weft/internal/annotate"
	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/cache"
	"github.com/weft-lang/weft/internal/codegen/audio"
	"github.com/weft-lang/weft/internal/codegen/visual"
	"github.com/weft-lang/weft/internal/desugar"
	"github.com/weft-lang/weft/internal/diag"
	"github.com/weft-lang/weft/internal/ir"
	"github.com/weft-lang/weft/internal/lexer"
	"github.com/weft-lang/weft/internal/lower"
	"github.com/weft-lang/weft/internal/preprocess"
	"github.com/weft-lang/weft/internal/swatch"
)

// State names the compile state machine's states (§4.7).
type State string

const (
	StateIdle       State = "idle"
	StateParsing    State = "parsing"
	StateDesugared  State = "desugared"
	StateLowered    State = "lowered"
	StateAnnotated  State = "annotated"
	StateScheduled  State = "scheduled"
	StateGenerated  State = "generated"
	StateReady      State = "ready"
)

// Result is everything a successful compile produces: the core
// Program (§3) plus the host-facing swatch/codegen metadata SPEC_FULL
// adds on top of it.
type Result struct {
	Program      *ir.Program
	Swatches     *swatch.Result
	VisualUnits  []*visual.Unit
	AudioUnits   []*audio.Unit
	SessionID    uuid.UUID
}

// Options configures one Session.
type Options struct {
	SearchPaths          []string
	StdlibDir            string
	MaterializeThreshold int
	Logger               *logrus.Logger
}

// Session compiles WEFT sources, threading a logger and session id
// through every stage.
type Session struct {
	opts Options
	log  *logrus.Entry
	id   uuid.UUID

	state State
}

// NewSession creates a Session with a fresh session id.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	id := uuid.New()
	return &Session{
		opts:  opts,
		id:    id,
		log:   opts.Logger.WithField("session", id.String()),
		state: StateIdle,
	}
}

// ID returns the session's uuid, for host-side correlation of log
// lines and error reports across concurrent compiles.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the state-machine position of the most recent compile
// attempt (§4.7).
func (s *Session) State() State { return s.state }

// Compile runs the full pipeline over source, read from path (used for
// #include resolution and error reporting). Any stage error aborts the
// compile and resets the session to Idle; no partial Program is
// returned (§4.7 Failure semantics).
func (s *Session) Compile(source, path string) (*Result, error) {
	s.state = StateParsing

	pre, err := preprocess.Process(source, path, preprocess.Options{
		SearchPaths: s.opts.SearchPaths,
		StdlibDir:   s.opts.StdlibDir,
	})
	if err != nil {
		return s.fail("preprocess", err)
	}
	s.debugStage("preprocess")

	lx := lexer.New(pre.Source)
	tokens, err := lx.Tokenize()
	if err != nil {
		return s.fail("tokenize", err)
	}
	s.debugStage("tokenize")

	parser := ast.NewParser(tokens, path, pre.Source)
	prog, err := parser.Parse()
	if err != nil {
		return s.fail("parse", err)
	}
	s.debugStage("parse")

	prog = desugar.Desugar(prog)
	s.state = StateDesugared
	s.debugStage("desugar")

	irProg, err := lower.Lower(prog, lower.Options{})
	if err != nil {
		return s.fail("lower", err)
	}
	s.state = StateLowered
	s.debugStage("lower")

	if err := annotate.Annotate(irProg); err != nil {
		return s.fail("annotate", err)
	}
	s.state = StateAnnotated
	s.debugStage("annotate")

	sw, err := swatch.Build(irProg)
	if err != nil {
		return s.fail("swatch", err)
	}
	s.state = StateScheduled
	s.debugStage("swatch")

	if err := cache.Extract(irProg); err != nil {
		return s.fail("cache-extract", err)
	}
	s.debugStage("cache-extract")

	visUnits, err := visual.Generate(irProg, sw, visual.Options{MaterializeThreshold: s.opts.MaterializeThreshold})
	if err != nil {
		return s.fail("codegen-visual", err)
	}
	audUnits, err := audio.Generate(irProg, sw)
	if err != nil {
		return s.fail("codegen-audio", err)
	}
	s.state = StateGenerated
	s.debugStage("codegen")

	s.state = StateReady
	s.log.Info("compile ready")

	return &Result{
		Program:     irProg,
		Swatches:    sw,
		VisualUnits: visUnits,
		AudioUnits:  audUnits,
		SessionID:   s.id,
	}, nil
}

func (s *Session) fail(stage string, err error) (*Result, error) {
	s.state = StateIdle
	s.log.WithError(err).WithField("stage", stage).Warn("compile failed")
	return nil, err
}

func (s *Session) debugStage(name string) {
	s.log.WithField("stage", name).Debug("stage complete")
}

// FormatError is the host-facing formatError(err) surface (§6),
// delegating to diag.Format.
func FormatError(err error) (file string, line, col int, message string) {
	return diag.Format(err)
}
