package serve

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
)

//go:embed templates/*.html
var templates embed.FS

// Options tune the server.
type Options struct {
	AppEnv            string
	PredictionCacheMB int
}

// Server is the inference surface over one model bundle.
type Server struct {
	bundle  *artifact.Bundle
	missing []string
	cache   *predictionCache
	engine  *gin.Engine
}

type prediction struct {
	Class       int      `json:"prediction"`
	Probability *float64 `json:"probability,omitempty"`
}

type field struct {
	Name    string
	Numeric bool
	Value   string
}

type page struct {
	Fields  []field
	Missing []string
	Error   string
	Result  *prediction
	Model   string
}

// NewServer builds the router. With a nil bundle every predict endpoint
// answers 503 and the form page names the missing blobs.
func NewServer(b *artifact.Bundle, missing []string, opts Options) *Server {
	if b == nil && len(missing) == 0 {
		missing = artifact.BundleFiles
	}
	if opts.AppEnv == "prod" || opts.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{bundle: b, missing: missing, cache: newPredictionCache(opts.PredictionCacheMB)}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}

	r := gin.New()
	r.Use(cors.New(corsConfig), HTTPLogger(), HTTPRecovery())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"deref": func(p *float64) float64 { return *p },
	}).ParseFS(templates, "templates/*.html")))

	r.GET("/", s.index)
	r.POST("/predict", s.predictForm)
	r.POST("/api/v1/predict", s.predictJSON)
	r.GET("/healthz", s.health)
	s.engine = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving predictions")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ready() bool {
	return s.bundle != nil
}

func (s *Server) fields(values map[string]string) []field {
	meta := s.bundle.Meta
	out := make([]field, 0, len(meta.NumericCols)+len(meta.CategoricalCols))
	for _, c := range meta.NumericCols {
		v, ok := values[c]
		if !ok {
			v = "0.0"
		}
		out = append(out, field{Name: c, Numeric: true, Value: v})
	}
	for _, c := range meta.CategoricalCols {
		out = append(out, field{Name: c, Value: values[c]})
	}
	return out
}

func (s *Server) render(c *gin.Context, status int, p page) {
	if !s.ready() {
		p.Missing = s.missing
	} else {
		p.Model = s.bundle.Meta.Model
	}
	c.HTML(status, "index.html", p)
}

func (s *Server) index(c *gin.Context) {
	if !s.ready() {
		s.render(c, http.StatusOK, page{})
		return
	}
	s.render(c, http.StatusOK, page{Fields: s.fields(nil)})
}

func (s *Server) predictForm(c *gin.Context) {
	if !s.ready() {
		s.render(c, http.StatusServiceUnavailable, page{})
		return
	}
	values := map[string]string{}
	for _, col := range s.bundle.Meta.Columns() {
		values[col] = c.PostForm(col)
	}
	rec, err := s.formRecord(values)
	if err != nil {
		s.render(c, http.StatusBadRequest, page{Fields: s.fields(values), Error: err.Error()})
		return
	}
	pred, err := s.predict(rec)
	if err != nil {
		s.render(c, http.StatusBadRequest, page{Fields: s.fields(values), Error: err.Error()})
		return
	}
	s.render(c, http.StatusOK, page{Fields: s.fields(values), Result: &pred})
}

func (s *Server) predictJSON(c *gin.Context) {
	if !s.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model bundle unavailable", "missing": s.missing})
		return
	}
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if inner, ok := req["features"].(map[string]any); ok {
		req = inner
	}
	rec, err := s.jsonRecord(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pred, err := s.predict(rec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prediction":  pred.Class,
		"probability": pred.Probability,
		"model":       s.bundle.Meta.Model,
		"bundle_id":   s.bundle.Meta.BundleID,
	})
}

func (s *Server) health(c *gin.Context) {
	if !s.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "missing": s.missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": s.bundle.Meta.Model, "bundle_id": s.bundle.Meta.BundleID})
}

// formRecord maps form text to values: empty numeric fields are missing,
// categorical text is taken as typed.
func (s *Server) formRecord(values map[string]string) (map[string]data.Value, error) {
	meta := s.bundle.Meta
	rec := make(map[string]data.Value, len(values))
	for _, c := range meta.NumericCols {
		v := strings.TrimSpace(values[c])
		if v == "" {
			rec[c] = data.Null
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", c, v)
		}
		rec[c] = data.Num(f)
	}
	for _, c := range meta.CategoricalCols {
		rec[c] = data.Str(values[c])
	}
	return rec, nil
}

func (s *Server) jsonRecord(req map[string]any) (map[string]data.Value, error) {
	meta := s.bundle.Meta
	rec := make(map[string]data.Value, len(req))
	for _, c := range meta.Columns() {
		raw, ok := req[c]
		if !ok || raw == nil {
			rec[c] = data.Null
			continue
		}
		switch v := raw.(type) {
		case float64:
			rec[c] = data.Num(v)
		case string:
			if meta.IsNumeric(c) {
				f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				if err != nil {
					return nil, fmt.Errorf("%s: %q is not a number", c, v)
				}
				rec[c] = data.Num(f)
				continue
			}
			rec[c] = data.Str(v)
		default:
			return nil, fmt.Errorf("%s: unsupported value %v", c, raw)
		}
	}
	return rec, nil
}

func (s *Server) predict(rec map[string]data.Value) (pred prediction, err error) {
	start := time.Now()
	key := recordKey(s.bundle.Meta.BundleID, s.bundle.Meta.Columns(), rec)
	hit := false
	defer func() {
		tags := metric.BuildTag(
			metric.NewTag(metric.TagCacheHit, strconv.FormatBool(hit)),
			metric.StatusTag(err),
		)
		metric.Incr(metric.PredictionCount, tags)
		metric.TimingWithStart(metric.PredictionLatency, start, tags)
	}()

	if cached, ok := s.cache.get(key); ok {
		hit = true
		return cached, nil
	}

	vec, err := s.bundle.Preprocessor.TransformRecord(rec)
	if err != nil {
		return prediction{}, err
	}
	X := [][]float64{vec}
	classes, err := s.bundle.Model.Predict(X)
	if err != nil {
		return prediction{}, err
	}
	pred.Class = classes[0]
	if pc, ok := model.AsProbabilistic(s.bundle.Model); ok {
		proba, err := pc.PredictProba(X)
		if err != nil {
			return prediction{}, err
		}
		pred.Probability = &proba[0]
	}
	s.cache.set(key, pred)
	return pred, nil
}
