package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
)

func TestRecorder_Instructions(t *testing.T) {
	r := NewRecorder()

	r.ObserveInstruction(ir.Receipt{Instruction: ir.InitUser, Outcome: ir.OutcomeSuccess, Seq: 1}, time.Millisecond)
	r.ObserveInstruction(ir.Receipt{Instruction: ir.CreatePost, Outcome: ir.OutcomeSuccess, Seq: 2}, time.Millisecond)
	r.ObserveInstruction(ir.Receipt{Instruction: ir.CreatePost, Outcome: "COUNTER_OVERFLOW", Seq: 3}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.instructions.WithLabelValues("init_user", "Success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.instructions.WithLabelValues("create_post", "COUNTER_OVERFLOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.slots.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.slots.WithLabelValues("post")), "failed posts create no slot")
	assert.Equal(t, 3.0, testutil.ToFloat64(r.lastSeq))
}

func TestRecorder_Airdrop(t *testing.T) {
	r := NewRecorder()
	r.ObserveAirdrop(engine.AirdropReceipt{Seq: 4, Lamports: 100})
	r.ObserveAirdrop(engine.AirdropReceipt{Seq: 5, Lamports: 50})

	assert.Equal(t, 150.0, testutil.ToFloat64(r.airdropped))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.lastSeq))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveInstruction(ir.Receipt{Instruction: ir.InitUser, Outcome: ir.OutcomeSuccess, Seq: 1}, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `blogsol_instructions_total{instruction="init_user",outcome="Success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
