package server

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/interact"
	"github.com/Zachkp/folio/internal/render"
	"github.com/Zachkp/folio/internal/store"
)

const (
	sessionCookie   = "folio_session"
	htmlContentType = "text/html; charset=utf-8"
)

var modalSection = render.Section(interact.BindModal)

// session resolves the visitor's controller against the current content.
// Without loaded content it answers 503 and returns false.
func (s *Server) session(c *gin.Context) (*interact.Session, *content.Model, bool) {
	state, version := s.content.Current()
	model, ok := content.ModelOf(state)
	if !ok {
		c.Header("Retry-After", "5")
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return nil, nil, false
	}

	id, _ := c.Cookie(sessionCookie)
	sess, _ := s.sessions.Acquire(id, model, version)
	// Sessions expire a ttl after last use; the cookie slides with them.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, int(s.cfg.View.SessionTTL.Seconds()), "/", "", false, true)
	return sess, model, true
}

func generation(c *gin.Context) (uint64, bool) {
	gen, err := strconv.ParseUint(c.Query("gen"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return 0, false
	}
	return gen, true
}

func revealPolicy(name render.Section) interact.Policy {
	if name == render.SectionProfile {
		return interact.Toggle
	}
	return interact.OneShot
}

// bind records a fresh render of each section with the controller and
// returns the bindings to stamp into the markup.
func bind(ctrl *interact.Controller, model *content.Model, sections []render.Section) map[render.Section]render.Binding {
	bindings := make(map[render.Section]render.Binding, len(sections))
	for _, name := range sections {
		gen := ctrl.Rendered(string(name), render.RevealIDs(name, model), revealPolicy(name))
		bindings[name] = render.Binding{Section: name, Generation: gen}
	}
	return bindings
}

func viewOf(ctrl *interact.Controller, model *content.Model) render.View {
	return render.View{
		ActiveFilter: ctrl.Filter().Active(),
		Hidden:       ctrl.Filter().Hidden(model.Projects),
	}
}

// rejected reports whether err ended the request, writing the response for
// it. Stale and unknown targets are expected and never reach the user as
// errors.
func (s *Server) rejected(c *gin.Context, kind interact.EventKind, err error) bool {
	switch {
	case err == nil:
		interactionsTotal.WithLabelValues(string(kind), "ok").Inc()
		return false
	case stale(err):
		interactionsTotal.WithLabelValues(string(kind), "stale").Inc()
		s.logger.Debug("Ignoring event from replaced markup", zap.String("kind", string(kind)), zap.Error(err))
		c.AbortWithStatus(http.StatusConflict)
	case errors.Is(err, interact.ErrUnknownProject):
		interactionsTotal.WithLabelValues(string(kind), "unknown").Inc()
		s.logger.Debug("Ignoring unknown project", zap.Error(err))
		c.AbortWithStatus(http.StatusNoContent)
	default:
		interactionsTotal.WithLabelValues(string(kind), "error").Inc()
		s.fail(c, err)
	}
	return true
}

func stale(err error) bool {
	return errors.Is(err, interact.ErrStaleBinding) || errors.Is(err, interact.ErrUnbound)
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("Render failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	_ = c.Error(err)
	c.AbortWithStatus(http.StatusInternalServerError)
}

func (s *Server) handlePage(c *gin.Context) {
	state, _ := s.content.Current()
	if _, ok := content.ModelOf(state); !ok {
		s.placeholderPage(c, state)
		return
	}
	sess, model, ok := s.session(c)
	if !ok {
		return
	}

	var fragments map[render.Section]template.HTML
	err := sess.Do(func(ctrl *interact.Controller) error {
		ctrl.Reset()
		bindings := bind(ctrl, model, render.Sections)
		var err error
		fragments, err = s.renderer.Page(render.Sections, model, bindings, viewOf(ctrl, model))
		return err
	})
	if err != nil {
		s.logger.Error("Section render failed", zap.Error(err))
	}

	modal, err := s.renderer.ClosedModal()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "page", newPageData(model, stateLoaded, fragments, modal, s.cfg.View.RevealThreshold))
}

func (s *Server) placeholderPage(c *gin.Context, state content.State) {
	name := stateLoading
	if _, failed := state.(content.Failed); failed {
		name = stateFailed
	}
	modal, _ := s.renderer.ClosedModal()
	c.Header("Retry-After", "5")
	c.HTML(http.StatusServiceUnavailable, "page", newPageData(nil, name, nil, modal, s.cfg.View.RevealThreshold))
}

func (s *Server) handleSection(c *gin.Context) {
	name := render.Section(c.Param("name"))
	if !render.Known(name) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	sess, model, ok := s.session(c)
	if !ok {
		return
	}

	var html template.HTML
	err := sess.Do(func(ctrl *interact.Controller) error {
		b := bind(ctrl, model, []render.Section{name})[name]
		var err error
		html, err = s.renderer.Section(name, model, b, viewOf(ctrl, model))
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

type filterResponse struct {
	Filter     string                    `json:"filter"`
	Visibility []interact.CardVisibility `json:"visibility"`
}

func (s *Server) handleFilter(c *gin.Context) {
	gen, ok := generation(c)
	if !ok {
		return
	}
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	var res interact.Result
	err := sess.Do(func(ctrl *interact.Controller) error {
		var err error
		res, err = ctrl.Dispatch(interact.Event{Kind: interact.EventFilter, Generation: gen, Tag: c.Query("tag")})
		return err
	})
	if s.rejected(c, interact.EventFilter, err) {
		return
	}
	if res.Changed && !content.IsAll(res.Filter) {
		s.recorder.Interaction(store.Interaction{Kind: store.KindFilter, Tag: res.Filter})
	}
	c.JSON(http.StatusOK, filterResponse{Filter: res.Filter, Visibility: res.Visibility})
}

func (s *Server) handleProject(c *gin.Context) {
	gen, ok := generation(c)
	if !ok {
		return
	}
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	id := c.Param("id")
	var html template.HTML
	err := sess.Do(func(ctrl *interact.Controller) error {
		res, err := ctrl.Dispatch(interact.Event{Kind: interact.EventCardClick, Generation: gen, ProjectID: id})
		if err != nil {
			return err
		}
		p, _ := ctrl.Modal().Project()
		modalGen := ctrl.Rendered(interact.BindModal, nil, interact.OneShot)
		html, err = s.renderer.ProjectDetail(p, res.Carousel, render.Binding{Section: modalSection, Generation: modalGen})
		return err
	})
	if s.rejected(c, interact.EventCardClick, err) {
		return
	}
	s.recorder.Interaction(store.Interaction{Kind: store.KindModalOpen, ProjectID: id})
	c.Header("HX-Trigger", "folio:modal-opened")
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

func (s *Server) closedModal(c *gin.Context) {
	html, err := s.renderer.ClosedModal()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("HX-Trigger", "folio:modal-closed")
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

// handleModalClose always answers with the closed modal, even for markup
// from a reset or replaced controller. The binding only decides how the
// event is counted.
func (s *Server) handleModalClose(c *gin.Context) {
	gen, ok := generation(c)
	if !ok {
		return
	}
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	reason := interact.CloseReason(c.DefaultQuery("reason", string(interact.CloseButton)))
	err := sess.Do(func(ctrl *interact.Controller) error {
		_, err := ctrl.Dispatch(interact.Event{Kind: interact.EventModalClose, Generation: gen, Reason: reason})
		ctrl.CloseModal(reason)
		return err
	})
	if stale(err) {
		interactionsTotal.WithLabelValues(string(interact.EventModalClose), "stale").Inc()
		s.logger.Debug("Closing modal from replaced markup", zap.Error(err))
	} else if s.rejected(c, interact.EventModalClose, err) {
		return
	}
	s.closedModal(c)
}

// handleModalKey closes the modal on Escape, answering with the closed modal
// even when it was already closed. Other keys get 204.
func (s *Server) handleModalKey(c *gin.Context) {
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	key := c.Query("key")
	err := sess.Do(func(ctrl *interact.Controller) error {
		if _, err := ctrl.Dispatch(interact.Event{Kind: interact.EventKey, Key: key}); err != nil {
			return err
		}
		if key == interact.KeyEscape {
			ctrl.CloseModal(interact.CloseEscape)
		}
		return nil
	})
	if s.rejected(c, interact.EventKey, err) {
		return
	}
	if key != interact.KeyEscape {
		c.Status(http.StatusNoContent)
		return
	}
	s.closedModal(c)
}

func (s *Server) handleCarousel(c *gin.Context) {
	var kind interact.EventKind
	switch c.Param("dir") {
	case "next":
		kind = interact.EventCarouselNext
	case "prev":
		kind = interact.EventCarouselPrev
	default:
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	gen, ok := generation(c)
	if !ok {
		return
	}
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	var html template.HTML
	err := sess.Do(func(ctrl *interact.Controller) error {
		res, err := ctrl.Dispatch(interact.Event{Kind: kind, Generation: gen})
		if err != nil || !res.Changed {
			return err
		}
		p, _ := ctrl.Modal().Project()
		html, err = s.renderer.Carousel(p, res.Carousel, render.Binding{Section: modalSection, Generation: gen})
		return err
	})
	if s.rejected(c, kind, err) {
		return
	}
	if html == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

type revealRequest struct {
	Viewport float64            `json:"viewport" binding:"gt=0"`
	Tops     map[string]float64 `json:"tops"`
}

type revealResponse struct {
	Reveals []interact.Transition `json:"reveals"`
}

func (s *Server) handleReveal(c *gin.Context) {
	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, _, ok := s.session(c)
	if !ok {
		return
	}

	var res interact.Result
	err := sess.Do(func(ctrl *interact.Controller) error {
		var err error
		res, err = ctrl.Dispatch(interact.Event{Kind: interact.EventScroll, Viewport: req.Viewport, Tops: req.Tops})
		return err
	})
	if s.rejected(c, interact.EventScroll, err) {
		return
	}
	reveals := res.Reveals
	if reveals == nil {
		reveals = []interact.Transition{}
	}
	c.JSON(http.StatusOK, revealResponse{Reveals: reveals})
}

func (s *Server) handleHealth(c *gin.Context) {
	state, version := s.content.Current()
	switch st := state.(type) {
	case content.Loaded:
		c.JSON(http.StatusOK, gin.H{"status": "loaded", "version": version, "projects": len(st.Model.Projects)})
	case content.Failed:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "failed", "version": version, "error": st.Err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_loaded", "version": version})
	}
}
