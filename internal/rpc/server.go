// Package rpc serves the runtime over HTTP with gin.
//
// Writes go through the engine's queue so they share its single writer;
// reads go straight to the program's lookups.
package rpc

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
)

// Runtime accepts writes. Implemented by *engine.Engine.
type Runtime interface {
	Submit(ctx context.Context, ix ir.Instruction) (ir.Receipt, error)
	SubmitAirdrop(ctx context.Context, req engine.AirdropRequest) (engine.AirdropReceipt, error)
}

// Lookup answers reads. Implemented by *program.Program.
type Lookup interface {
	User(ctx context.Context, authority ir.Pubkey) (program.UserAccount, error)
	Post(ctx context.Context, authority ir.Pubkey, id uint64) (program.PostAccount, error)
	Posts(ctx context.Context, authority ir.Pubkey) ([]program.PostAccount, error)
	Account(ctx context.Context, addr ir.Pubkey) (program.Account, error)
}

// Handler wires HTTP routes to the runtime.
type Handler struct {
	runtime    Runtime
	lookup     Lookup
	metrics    http.Handler
	maxAirdrop uint64
	log        logrus.FieldLogger
}

// NewHandler creates a Handler. metrics may be nil to omit /metrics;
// maxAirdrop 0 disables airdrops.
func NewHandler(runtime Runtime, lookup Lookup, metrics http.Handler, maxAirdrop uint64, log logrus.FieldLogger) *Handler {
	return &Handler{
		runtime:    runtime,
		lookup:     lookup,
		metrics:    metrics,
		maxAirdrop: maxAirdrop,
		log:        log,
	}
}

// RegisterRoutes mounts the API on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger())

	api := router.Group("/v1")
	{
		api.POST("/instructions", h.submitInstruction)
		api.POST("/airdrop", h.airdrop)
		api.GET("/users/:authority", h.getUser)
		api.GET("/users/:authority/posts", h.listPosts)
		api.GET("/users/:authority/posts/:id", h.getPost)
		api.GET("/accounts/:address", h.getAccount)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true, "version": ir.ProgramVersion, "ir_version": ir.IRVersion})
		})
	}
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// NewRouter returns a gin engine with recovery and the API mounted.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("rpc request")
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type instructionResponse struct {
	Receipt ir.Receipt `json:"receipt"`
	Error   *errorBody `json:"error,omitempty"`
}

type airdropRequest struct {
	To       string `json:"to" binding:"required"`
	Lamports uint64 `json:"lamports" binding:"required"`
}

func (h *Handler) submitInstruction(c *gin.Context) {
	var ix ir.Instruction
	if err := c.ShouldBindJSON(&ix); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: string(program.ErrCodeInvalidArgument), Message: err.Error()}})
		return
	}

	receipt, err := h.runtime.Submit(c.Request.Context(), ix)
	if err == nil {
		c.JSON(http.StatusOK, instructionResponse{Receipt: receipt})
		return
	}
	if code := program.CodeOf(err); code != "" {
		c.JSON(statusFor(code), instructionResponse{
			Receipt: receipt,
			Error:   &errorBody{Code: string(code), Message: err.Error()},
		})
		return
	}
	h.internalError(c, err)
}

func (h *Handler) airdrop(c *gin.Context) {
	if h.maxAirdrop == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": errorBody{Code: "DISABLED", Message: "airdrops are disabled"}})
		return
	}

	var req airdropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: string(program.ErrCodeInvalidArgument), Message: err.Error()}})
		return
	}
	to, err := ir.ParsePubkey(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: string(program.ErrCodeInvalidArgument), Message: err.Error()}})
		return
	}
	if req.Lamports > h.maxAirdrop {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    string(program.ErrCodeInvalidArgument),
			Message: "airdrop exceeds limit of " + strconv.FormatUint(h.maxAirdrop, 10) + " lamports",
		}})
		return
	}

	receipt, err := h.runtime.SubmitAirdrop(c.Request.Context(), engine.AirdropRequest{To: to, Lamports: req.Lamports})
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) getUser(c *gin.Context) {
	authority, ok := pubkeyParam(c, "authority")
	if !ok {
		return
	}
	user, err := h.lookup.User(c.Request.Context(), authority)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) listPosts(c *gin.Context) {
	authority, ok := pubkeyParam(c, "authority")
	if !ok {
		return
	}
	posts, err := h.lookup.Posts(c.Request.Context(), authority)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) getPost(c *gin.Context) {
	authority, ok := pubkeyParam(c, "authority")
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: string(program.ErrCodeInvalidArgument), Message: "invalid post id"}})
		return
	}
	post, err := h.lookup.Post(c.Request.Context(), authority, id)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) getAccount(c *gin.Context) {
	addr, ok := pubkeyParam(c, "address")
	if !ok {
		return
	}
	acct, err := h.lookup.Account(c.Request.Context(), addr)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func pubkeyParam(c *gin.Context, name string) (ir.Pubkey, bool) {
	key, err := ir.ParsePubkey(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Code: string(program.ErrCodeInvalidArgument), Message: err.Error()}})
		return ir.Pubkey{}, false
	}
	return key, true
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	if code := program.CodeOf(err); code != "" {
		c.JSON(statusFor(code), gin.H{"error": errorBody{Code: string(code), Message: err.Error()}})
		return
	}
	h.internalError(c, err)
}

func (h *Handler) internalError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, engine.ErrStopped) {
		status = http.StatusServiceUnavailable
	}
	h.log.WithError(err).WithField("path", c.FullPath()).Error("rpc request failed")
	c.JSON(status, gin.H{"error": errorBody{Code: "INTERNAL", Message: err.Error()}})
}

// statusFor maps a program error code to an HTTP status.
func statusFor(code program.ErrorCode) int {
	switch code {
	case program.ErrCodeAuthorization:
		return http.StatusForbidden
	case program.ErrCodeAddressCollision:
		return http.StatusConflict
	case program.ErrCodeCounterOverflow:
		return http.StatusUnprocessableEntity
	case program.ErrCodeResource:
		return http.StatusPaymentRequired
	case program.ErrCodeAccountNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
