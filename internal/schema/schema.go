// Package schema validates instruction arguments against the program's
// interface definition, written in CUE and embedded at build time.
//
// CUE checks the shape of the arguments: required fields, types and closed
// structs. Byte limits for slot storage are enforced by the program.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/blogsol/internal/ir"
)

//go:embed program.cue
var source string

// Source returns the embedded CUE definition.
func Source() string {
	return source
}

// InitUserArgs are the decoded arguments of init_user.
type InitUserArgs struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// CreatePostArgs are the decoded arguments of create_post.
type CreatePostArgs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Schema holds the compiled definitions.
// A cue.Context is not safe for concurrent use, so calls are serialized.
type Schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[ir.InstructionName]cue.Value
}

// Load compiles the embedded definition.
func Load() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source, cue.Filename("program.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	defs := map[ir.InstructionName]cue.Value{
		ir.InitUser:   v.LookupPath(cue.ParsePath("#InitUser")),
		ir.CreatePost: v.LookupPath(cue.ParsePath("#CreatePost")),
	}
	for name, def := range defs {
		if !def.Exists() {
			return nil, fmt.Errorf("schema: definition for %s missing", name)
		}
	}
	return &Schema{ctx: ctx, defs: defs}, nil
}

// MustLoad is like Load but panics on error. The definition is compiled in,
// so a failure is a build defect.
func MustLoad() *Schema {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks args against the definition for name.
func (s *Schema) Validate(name ir.InstructionName, args ir.IRObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.unify(name, args)
	return err
}

// DecodeInitUser validates and decodes init_user arguments.
func (s *Schema) DecodeInitUser(args ir.IRObject) (InitUserArgs, error) {
	var out InitUserArgs
	return out, s.decode(ir.InitUser, args, &out)
}

// DecodeCreatePost validates and decodes create_post arguments.
func (s *Schema) DecodeCreatePost(args ir.IRObject) (CreatePostArgs, error) {
	var out CreatePostArgs
	return out, s.decode(ir.CreatePost, args, &out)
}

func (s *Schema) decode(name ir.InstructionName, args ir.IRObject, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.unify(name, args)
	if err != nil {
		return err
	}
	if err := v.Decode(out); err != nil {
		return formatCUEError(name, err)
	}
	return nil
}

func (s *Schema) unify(name ir.InstructionName, args ir.IRObject) (cue.Value, error) {
	def, ok := s.defs[name]
	if !ok {
		return cue.Value{}, &ValidationError{Instruction: name, Message: "unknown instruction"}
	}
	if args == nil {
		args = ir.IRObject{}
	}

	v := def.Unify(s.ctx.Encode(ir.ToAny(args)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, formatCUEError(name, err)
	}
	return v, nil
}

// ValidationError reports arguments that do not satisfy the definition.
type ValidationError struct {
	Instruction ir.InstructionName
	Message     string
	Pos         token.Pos
}

func (e *ValidationError) Error() string {
	if e.Instruction == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Instruction, e.Message)
}

// formatCUEError keeps the first error CUE reports.
func formatCUEError(name ir.InstructionName, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Instruction: name, Message: err.Error()}
	}
	first := errs[0]
	out := &ValidationError{Instruction: name, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
