package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"snapmath/pkg/eval"
	"snapmath/pkg/imgproc"
	"snapmath/pkg/session"
	"snapmath/pkg/vision"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthzHandler)

	api := r.Group("/api")
	api.POST("/evaluate", evaluateHandler)
	api.POST("/crop", cropHandler)
	api.POST("/sessions", createSessionHandler)
	api.GET("/sessions/:id", getSessionHandler)
	api.POST("/sessions/:id/image", uploadImageHandler)
	api.POST("/sessions/:id/region", setRegionHandler)
	api.POST("/sessions/:id/process", processHandler)
	api.POST("/sessions/:id/expression", correctExpressionHandler)
	api.POST("/sessions/:id/reset", resetHandler)
}

func healthzHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// evaluateHandler recomputes a user-edited expression locally. An invalid
// expression is a normal outcome the user corrects inline, never a server
// error.
func evaluateHandler(c *gin.Context) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, evaluationBody(req.Expression))
}

func evaluationBody(expr string) gin.H {
	v, err := eval.Evaluate(expr)
	if err != nil {
		return gin.H{"expression": expr, "valid": false, "error": "Invalid Expression"}
	}
	return gin.H{"expression": expr, "valid": true, "result": v}
}

// cropHandler is the stateless crop utility: data-URI image in, cropped
// data-URI out.
func cropHandler(c *gin.Context) {
	var req struct {
		Image  string         `json:"image" binding:"required"`
		Region imgproc.Region `json:"region"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := imgproc.ParseDataURL(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad image payload"})
		return
	}
	out, err := imgproc.Crop(c.Request.Context(), img, req.Region)
	if err != nil {
		log.Printf("crop failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cropping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": out.DataURL()})
}

func createSessionHandler(c *gin.Context) {
	s := sessions.Create()
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "stage": session.StageUpload})
}

func getSessionHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sessionView(s.Snapshot()))
}

// sessionView shapes a state snapshot for the client. Image bytes stay out
// of the snapshot; the client already holds them.
func sessionView(st session.State) gin.H {
	view := gin.H{
		"stage":     st.Stage,
		"has_image": st.Image != nil,
	}
	if st.Region != nil {
		view["region"] = st.Region
	}
	if st.Extraction != nil {
		view["extraction"] = st.Extraction
		if st.Extraction.Empty() {
			view["message"] = "No equation found"
		}
	}
	if st.Expression != "" || st.Stage == session.StageReview {
		view["expression"] = st.Expression
		if st.Result != nil {
			view["valid"] = true
			view["result"] = *st.Result
		} else {
			view["valid"] = false
		}
	}
	if st.Enhanced != nil {
		view["enhanced_image"] = st.Enhanced.DataURL()
	}
	return view
}

// uploadImageHandler buffers one image into the session. Uploads are capped
// and decode-checked before they are accepted; a corrupt image blocks here,
// not later in the pipeline.
func uploadImageHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	ct := file.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only image uploads are accepted"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, cfg.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	if int64(len(data)) > cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	img := imgproc.RasterImage{MIME: ct, Data: data}
	if _, err := img.Decode(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not decode image"})
		return
	}
	st, err := s.Apply(session.ImageAttached{Image: img})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(st))
}

func setRegionHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	var region imgproc.Region
	if err := c.ShouldBindJSON(&region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := region.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := s.Apply(session.RegionSet{Region: region})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(st))
}

// processHandler runs the remote leg: crop the selected region, ask the
// model to enhance it, extract the equation, assemble and evaluate. Remote
// failure rolls the session back to region selection; a reset while the
// call is in flight cancels it and leaves any late result stale.
func processHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	var req struct {
		Engine string `json:"engine"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	engineName := req.Engine
	if engineName == "" {
		engineName = cfg.Engine
	}
	engine, err := engines.Get(engineName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	before := s.Snapshot()
	if before.Image == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no image uploaded"})
		return
	}

	ctx, gen, err := s.BeginProcessing(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	rollback := func() {
		if _, err := s.Apply(session.ProcessingFailed{Generation: gen}); err != nil {
			log.Printf("session %s: rollback skipped: %v", s.ID, err)
		}
	}

	img := *before.Image
	if before.Region != nil {
		img, err = imgproc.Crop(ctx, img, *before.Region)
		if err != nil {
			log.Printf("session %s: crop failed: %v", s.ID, err)
			rollback()
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cropping failed"})
			return
		}
	}

	var enhancedPtr *imgproc.RasterImage
	enhanced, err := engine.Enhance(ctx, img)
	switch {
	case err == nil:
		enhancedPtr = &enhanced
	case errors.Is(err, vision.ErrEnhanceUnsupported):
		// keep the unenhanced crop
		enhanced = img
	default:
		log.Printf("session %s: enhance failed (%s): %v", s.ID, engine.Name(), err)
		rollback()
		c.JSON(http.StatusBadGateway, gin.H{"error": "processing failed"})
		return
	}

	ext, err := engine.Extract(ctx, enhanced)
	if err != nil {
		log.Printf("session %s: extract failed (%s): %v", s.ID, engine.Name(), err)
		rollback()
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not extract data"})
		return
	}

	expr := eval.Assemble(ext.Numbers, ext.Operators, ext.Expression)
	var result *float64
	if expr != "" {
		if v, err := eval.Evaluate(expr); err == nil {
			result = &v
		}
	}

	st, err := s.Apply(session.ProcessingFinished{
		Generation: gen,
		Enhanced:   enhancedPtr,
		Extraction: ext,
		Expression: expr,
		Result:     result,
	})
	if err != nil {
		// the session was reset while we were on the wire
		c.JSON(http.StatusConflict, gin.H{"error": "session was reset"})
		return
	}
	c.JSON(http.StatusOK, sessionView(st))
}

// correctExpressionHandler re-evaluates a corrected expression without any
// further network call.
func correctExpressionHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	var req struct {
		Expression string `json:"expression"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var result *float64
	if v, err := eval.Evaluate(req.Expression); err == nil {
		result = &v
	}
	st, err := s.Apply(session.ExpressionCorrected{Expression: req.Expression, Result: result})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(st))
}

func resetHandler(c *gin.Context) {
	s, ok := sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sessionView(s.Reset()))
}
