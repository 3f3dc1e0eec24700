package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/salvium/walletcore/internal/address"
	"github.com/salvium/walletcore/internal/session"
	"github.com/salvium/walletcore/internal/sigverify"
	"github.com/salvium/walletcore/internal/txbuilder"
	"github.com/salvium/walletcore/internal/walleterr"
)

// APIHandler wires the wallet session behind the daemon's HTTP surface:
// status, balance, sync, the transaction entry points, and message
// verification.
type APIHandler struct {
	session *session.Session
	wsHub   *Hub
}

// SetupRouter builds the Gin router for one wallet session: a
// CORS-enabling middleware, a public group (health, websocket stream,
// sync progress) and a bearer-token-protected, rate-limited group for
// everything that reads or moves funds.
func SetupRouter(sess *session.Session, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{session: sess, wsHub: wsHub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/sync/progress", handler.handleSyncProgress)
		pub.GET("/address", handler.handleMainAddress)
		pub.POST("/verify", handler.handleVerifySignature)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.GET("/balance/:asset", handler.handleGetBalance)
		auth.POST("/sync", handler.handleSync)
		auth.POST("/transfer", handler.handleTransfer)
		auth.POST("/sweep", handler.handleSweep)
		auth.POST("/stake", handler.handleStake)
		auth.POST("/burn", handler.handleBurn)
		auth.POST("/convert", handler.handleConvert)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": "walletcore",
		"height":  h.session.Height(),
	})
}

// handleSync drives one incremental sync pass and reports what happened,
// the HTTP analogue of the daemon's background sync loop.
func (h *APIHandler) handleSync(c *gin.Context) {
	result, err := h.session.Sync(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fromHeight": result.FromHeight,
		"toHeight":   result.ToHeight,
		"blocksRead": result.BlocksRead,
		"reorgAt":    result.ReorgAt,
	})
}

func (h *APIHandler) handleSyncProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"height": h.session.Height()})
}

func (h *APIHandler) handleMainAddress(c *gin.Context) {
	addr, err := h.session.MainAddress(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	encoded, err := address.Encode(addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": encoded})
}

func (h *APIHandler) handleGetBalance(c *gin.Context) {
	assetType := c.Param("asset")
	bal, err := h.session.GetBalance(c.Request.Context(), assetType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

type destRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

type transferRequest struct {
	Destinations          []destRequest `json:"destinations" binding:"required"`
	Priority              int           `json:"priority"`
	SubtractFeeFromAmount bool          `json:"subtractFeeFromAmount"`
	DryRun                bool          `json:"dryRun"`
	RingSize              int           `json:"ringSize"`
}

func (r transferRequest) options() txbuilder.Options {
	return txbuilder.Options{
		Priority:              txbuilder.Priority(r.Priority),
		SubtractFeeFromAmount: r.SubtractFeeFromAmount,
		DryRun:                r.DryRun,
		RingSize:              r.RingSize,
	}
}

// handleTransfer binds a JSON transfer request onto Session.Transfer.
func (h *APIHandler) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	dests := make([]txbuilder.Destination, 0, len(req.Destinations))
	for _, d := range req.Destinations {
		addr, err := address.Decode(d.Address)
		if err != nil {
			writeError(c, err)
			return
		}
		dests = append(dests, txbuilder.Destination{Address: addr, Amount: d.Amount})
	}

	result, err := h.session.Transfer(c.Request.Context(), dests, req.options())
	if err != nil {
		writeError(c, err)
		return
	}
	writeTxResult(c, result)
}

type sweepRequest struct {
	Address  string `json:"address" binding:"required"`
	Priority int    `json:"priority"`
	DryRun   bool   `json:"dryRun"`
}

// handleSweep binds a JSON sweep request onto Session.Sweep.
func (h *APIHandler) handleSweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	addr, err := address.Decode(req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := h.session.Sweep(c.Request.Context(), addr, txbuilder.Options{
		Priority: txbuilder.Priority(req.Priority),
		DryRun:   req.DryRun,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeTxResult(c, result)
}

type amountRequest struct {
	Amount   uint64 `json:"amount" binding:"required"`
	Priority int    `json:"priority"`
	DryRun   bool   `json:"dryRun"`
}

// handleStake binds a JSON stake request onto Session.Stake.
func (h *APIHandler) handleStake(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	result, err := h.session.Stake(c.Request.Context(), req.Amount, txbuilder.Options{
		Priority: txbuilder.Priority(req.Priority),
		DryRun:   req.DryRun,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeTxResult(c, result)
}

// handleBurn binds a JSON burn request onto Session.Burn.
func (h *APIHandler) handleBurn(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	result, err := h.session.Burn(c.Request.Context(), req.Amount, txbuilder.Options{
		Priority: txbuilder.Priority(req.Priority),
		DryRun:   req.DryRun,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeTxResult(c, result)
}

type convertRequest struct {
	Amount              uint64 `json:"amount" binding:"required"`
	SourceAsset         string `json:"sourceAsset" binding:"required"`
	DestAsset           string `json:"destAsset" binding:"required"`
	Destination         string `json:"destination" binding:"required"`
	SlippageBasisPoints uint64 `json:"slippageBasisPoints"`
	Priority            int    `json:"priority"`
	DryRun              bool   `json:"dryRun"`
}

// handleConvert binds a JSON convert request onto Session.Convert.
func (h *APIHandler) handleConvert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	addr, err := address.Decode(req.Destination)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := h.session.Convert(c.Request.Context(), req.Amount, req.SourceAsset, req.DestAsset, addr, req.SlippageBasisPoints, txbuilder.Options{
		Priority: txbuilder.Priority(req.Priority),
		DryRun:   req.DryRun,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"txHash":          hexString(result.TxHash[:]),
		"hex":             result.Hex,
		"fee":             result.Fee,
		"sourceAssetType": result.SourceAssetType,
		"destAssetType":   result.DestinationAssetType,
		"amountBurnt":     result.AmountBurnt,
		"amountSlippage":  result.AmountSlippageLimit,
		"broadcast":       result.Broadcast,
	})
}

type verifyRequest struct {
	Message   string `json:"message" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// handleVerifySignature binds a JSON request onto sigverify.Verify.
func (h *APIHandler) handleVerifySignature(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	addr, err := address.Decode(req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := sigverify.Verify([]byte(req.Message), addr, req.Signature)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":   result.Valid,
		"version": result.Version,
		"keyType": result.KeyType.String(),
	})
}

func writeTxResult(c *gin.Context, r *txbuilder.Result) {
	keyImages := make([]string, len(r.KeyImages))
	for i, ki := range r.KeyImages {
		keyImages[i] = hexString(ki[:])
	}
	c.JSON(http.StatusOK, gin.H{
		"txHash":    hexString(r.TxHash[:]),
		"hex":       r.Hex,
		"fee":       r.Fee,
		"keyImages": keyImages,
		"broadcast": r.Broadcast,
	})
}

func hexString(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

// writeError maps the wallet's flat error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := walleterr.Internal
	var werr *walleterr.Error
	if asWalletErr(err, &werr) {
		kind = werr.Kind
		switch kind {
		case walleterr.InvalidInput, walleterr.ParseError, walleterr.ChecksumMismatch, walleterr.ScalarInvalid, walleterr.PointInvalid:
			status = http.StatusBadRequest
		case walleterr.InsufficientBalance, walleterr.PolicyViolation:
			status = http.StatusUnprocessableEntity
		case walleterr.NetworkError, walleterr.RPCError:
			status = http.StatusBadGateway
		case walleterr.DoubleSpend:
			status = http.StatusConflict
		case walleterr.Cancelled:
			status = http.StatusRequestTimeout
		}
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
}

func asWalletErr(err error, target **walleterr.Error) bool {
	for err != nil {
		if e, ok := err.(*walleterr.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
