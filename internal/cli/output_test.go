package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
)

func TestOutputFormatter_JSONSuccessCarriesTrace(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(ReceiptResult{ir.Receipt{
		Instruction: ir.InitUser,
		Outcome:     ir.OutcomeSuccess,
		Seq:         1,
		TraceID:     "trace-1",
	}})
	require.NoError(t, err)

	var resp struct {
		Status  string     `json:"status"`
		Data    ir.Receipt `json:"data"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, ir.InitUser, resp.Data.Instruction)
}

func TestOutputFormatter_JSONSuccessWithoutTrace(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(KeygenResult{Path: "id.json", Pubkey: "abc"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.TraceID)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	receipt := ReceiptResult{ir.Receipt{
		Instruction: ir.InitUser,
		Outcome:     string(program.ErrCodeAddressCollision),
		Seq:         4,
		TraceID:     "trace-4",
	}}
	err := formatter.Error(string(program.ErrCodeAddressCollision), "user slot occupied", receipt)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "trace-4", resp.TraceID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ADDRESS_COLLISION", resp.Error.Code)
	assert.Equal(t, "user slot occupied", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	t.Run("texter", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Success(AirdropResult{engine.AirdropReceipt{
			Seq: 2, Lamports: 10, Balance: 15,
		}}))
		assert.Contains(t, buf.String(), "Credited 10 lamports")
		assert.Contains(t, buf.String(), "(balance 15, seq 2)")
	})

	t.Run("plain value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Success("done"))
		assert.Equal(t, "done\n", buf.String())
	})
}

func TestOutputFormatter_TextError(t *testing.T) {
	receipt := ReceiptResult{ir.Receipt{Instruction: ir.CreatePost, Outcome: "RESOURCE", Seq: 3}}

	t.Run("quiet", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Error("RESOURCE", "payer cannot fund rent", receipt))
		assert.Equal(t, "Error [RESOURCE]: payer cannot fund rent\n", buf.String())
	})

	t.Run("verbose prints receipt", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

		require.NoError(t, formatter.Error("RESOURCE", "payer cannot fund rent", receipt))
		assert.Contains(t, buf.String(), "create_post RESOURCE (seq 3)")
	})

	t.Run("verbose plain details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

		require.NoError(t, formatter.Error("E", "failed", map[string]string{"k": "v"}))
		assert.Contains(t, buf.String(), "Details:")
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		errW    bool
		wantOut string
		wantErr string
	}{
		{"disabled", false, true, "", ""},
		{"to err writer", true, true, "", "signed init_user\n"},
		{"falls back to writer", true, false, "signed init_user\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, Verbose: tt.verbose}
			if tt.errW {
				formatter.ErrWriter = errOut
			}

			formatter.VerboseLog("signed %s", ir.InitUser)

			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantErr, errOut.String())
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "rejected", errors.New("x"))), ExitFailure},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "replay diverged", NewExitError(ExitFailure, "replay diverged").Error())

	wrapped := WrapExitError(ExitCommandError, "failed to open database", errors.New("disk full"))
	assert.Equal(t, "failed to open database: disk full", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "disk full")
}
