// Package server - HTTP-Router und Handler fuer ein geladenes vit Modell
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware, Handler
package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ollama/vit/api"
	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/format"
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
	"github.com/ollama/vit/version"
	"github.com/ollama/vit/vision"
)

// RequestIDHeader traegt die Request-ID in Anfrage und Antwort
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// DefaultTopK ist die Anzahl Klassen pro Bild, wenn top_k fehlt
const DefaultTopK = 5

var mode string = gin.DebugMode

// Server bedient ein einzelnes, bei der Konstruktion geladenes Modell.
// Gewichte werden nur gelesen; jeder Request bekommt einen eigenen Compute-Kontext.
type Server struct {
	addr   net.Addr
	model  model.Model
	prep   *vision.Preprocessor
	labels []string
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// NewServer erstellt einen Server fuer m. labels ist optional und muss
// sonst genau eine Bezeichnung pro Klasse enthalten.
func NewServer(m model.Model, labels []string, norm vision.Normalization) (*Server, error) {
	c := m.Config()
	if len(labels) > 0 && len(labels) != c.NumClasses {
		return nil, fmt.Errorf("server: %d labels for %d classes", len(labels), c.NumClasses)
	}

	s := &Server{model: m, labels: labels}

	// Modelle mit anderen Kanalzahlen akzeptieren nur Pixel-Eingaben
	prep, err := vision.NewPreprocessor(c, norm)
	switch {
	case errors.Is(err, vision.ErrUnsupportedChannels):
		slog.Warn("image input disabled", "channels", c.Channels)
	case err != nil:
		return nil, err
	default:
		s.prep = prep
	}

	return s, nil
}

// isLocalIP prueft ob die IP-Adresse zu einem lokalen Interface gehoert
func isLocalIP(ip netip.Addr) bool {
	if interfaces, err := net.Interfaces(); err == nil {
		for _, iface := range interfaces {
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}

			for _, a := range addrs {
				if parsed, _, err := net.ParseCIDR(a.String()); err == nil {
					if parsed.String() == ip.String() {
						return true
					}
				}
			}
		}
	}

	return false
}

// allowedHost prueft ob der Host erlaubt ist
func allowedHost(host string) bool {
	host = strings.ToLower(host)

	if host == "" || host == "localhost" {
		return true
	}

	if hostname, err := os.Hostname(); err == nil && host == strings.ToLower(hostname) {
		return true
	}

	for _, tld := range []string{"localhost", "local", "internal"} {
		if strings.HasSuffix(host, "."+tld) {
			return true
		}
	}

	return false
}

// allowedHostsMiddleware blockiert Anfragen von nicht erlaubten Hosts,
// solange der Server nur auf Loopback lauscht
func allowedHostsMiddleware(addr net.Addr) gin.HandlerFunc {
	return func(c *gin.Context) {
		if addr == nil {
			c.Next()
			return
		}

		if addr, err := netip.ParseAddrPort(addr.String()); err == nil && !addr.Addr().IsLoopback() {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}

		if addr, err := netip.ParseAddr(host); err == nil {
			if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || isLocalIP(addr) {
				c.Next()
				return
			}
		}

		if allowedHost(host) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
			return
		}

		c.AbortWithStatus(http.StatusForbidden)
	}
}

// requestIDMiddleware vergibt jeder Anfrage eine Request-ID und protokolliert sie.
// Eine gueltige UUID im Header der Anfrage wird uebernommen.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		slog.Info("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		requestIDMiddleware(),
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "vit is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "vit is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })

	// Modell
	r.GET("/api/show", s.ShowHandler)
	r.POST("/api/classify", s.ClassifyHandler)

	return r
}

// ShowHandler verarbeitet GET /api/show
func (s *Server) ShowHandler(c *gin.Context) {
	verbose, err := strconv.ParseBool(c.DefaultQuery("verbose", "false"))
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: verbose: %v", ErrInvalidRequest, err))
		return
	}

	cfg := s.model.Config()
	params := s.model.Parameters()
	n := params.NumElements()

	resp := api.ShowResponse{
		Architecture:  cfg.Architecture,
		Backend:       s.model.Backend().Name(),
		Config:        cfg,
		Parameters:    n,
		ParameterSize: format.HumanNumber(uint64(n)),
		NumPatches:    cfg.NumPatches(),
		SeqLen:        cfg.SeqLen(),
		Labels:        len(s.labels),
	}

	if verbose {
		resp.Tensors = make([]api.TensorInfo, 0, params.Len())
		for name, t := range params.All() {
			resp.Tensors = append(resp.Tensors, api.TensorInfo{
				Name:     name,
				Shape:    t.Shape(),
				Elements: nn.NumElements(t.Shape()),
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ClassifyHandler verarbeitet POST /api/classify
func (s *Server) ClassifyHandler(c *gin.Context) {
	start := time.Now()

	var req api.ClassifyRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		abortWithError(c, fmt.Errorf("%w: missing request body", ErrInvalidRequest))
		return
	} else if err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	topK, err := s.validate(&req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx := s.model.Backend().NewContext(ml.ContextParams{})
	defer ctx.Close()

	input, err := s.input(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	logits, err := model.Forward(ctx, s.model, input)
	if errors.Is(err, model.ErrShapeMismatch) {
		abortWithError(c, err)
		return
	} else if err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", ErrInferenceFailed, err))
		return
	}

	numClasses := s.model.Config().NumClasses
	values := logits.Floats()
	resp := api.ClassifyResponse{Results: make([]api.Classification, logits.Dim(0))}
	for i := range resp.Results {
		row := values[i*numClasses : (i+1)*numClasses]
		resp.Results[i].Top = s.predictions(row, topK)
		if req.Logits {
			resp.Results[i].Logits = row
		}
	}
	resp.TotalDuration = time.Since(start)

	slog.Debug("classified", "request_id", c.GetString(requestIDKey), "batch", len(resp.Results), "duration", resp.TotalDuration)
	c.JSON(http.StatusOK, resp)
}

// validate prueft Batch-Groesse und top_k und gibt das effektive top_k zurueck
func (s *Server) validate(req *api.ClassifyRequest) (int, error) {
	n := len(req.Images) + len(req.Pixels)
	switch {
	case n == 0:
		return 0, fmt.Errorf("%w: images or pixels required", ErrInvalidRequest)
	case len(req.Images) > 0 && len(req.Pixels) > 0:
		return 0, fmt.Errorf("%w: only one of images and pixels may be set", ErrInvalidRequest)
	case n > int(envconfig.MaxBatch()):
		return 0, fmt.Errorf("%w: %d images, limit is %d", ErrBatchTooLarge, n, envconfig.MaxBatch())
	case req.TopK < 0:
		return 0, fmt.Errorf("%w: top_k must not be negative", ErrInvalidRequest)
	}

	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	return min(topK, s.model.Config().NumClasses), nil
}

// input baut den (B, C, H, W) Eingabe-Tensor aus Bildern oder Pixeln
func (s *Server) input(ctx ml.Context, req *api.ClassifyRequest) (ml.Tensor, error) {
	cfg := s.model.Config()

	if len(req.Pixels) > 0 {
		per := cfg.Channels * cfg.ImageSize * cfg.ImageSize
		data := make([]float32, 0, len(req.Pixels)*per)
		for i, pixels := range req.Pixels {
			if len(pixels) != per {
				return nil, &model.ShapeError{
					Op:     "classify",
					Want:   []int{per},
					Got:    []int{len(pixels)},
					Reason: fmt.Sprintf("pixels[%d] must hold channels*image_size*image_size values", i),
				}
			}
			data = append(data, pixels...)
		}
		return ctx.FromFloats(data, len(req.Pixels), cfg.Channels, cfg.ImageSize, cfg.ImageSize), nil
	}

	if s.prep == nil {
		return nil, fmt.Errorf("%w: model with %d channels only accepts pixels", ErrInvalidImage, cfg.Channels)
	}

	blobs := make([][]byte, len(req.Images))
	for i, encoded := range req.Images {
		// data:image/png;base64,... wird akzeptiert
		if strings.HasPrefix(encoded, "data:") {
			_, encoded, _ = strings.Cut(encoded, ",")
		}

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: images[%d]: %v", ErrInvalidBase64, i, err)
		}
		blobs[i] = data
	}

	t, err := s.prep.Decode(ctx, blobs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return t, nil
}

// predictions wandelt die besten k Logits in API-Vorhersagen
func (s *Server) predictions(logits []float32, k int) []api.Prediction {
	scores := model.TopK(logits, k)
	out := make([]api.Prediction, len(scores))
	for i, sc := range scores {
		out[i] = api.Prediction{
			Index:       sc.Index,
			Logit:       sc.Logit,
			Probability: sc.Probability,
		}
		if len(s.labels) > 0 {
			out[i].Label = s.labels[sc.Index]
		}
	}
	return out
}
