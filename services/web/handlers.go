package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ampctl-go/errcode"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
)

const (
	opWebConfig = "WEB CONFIG"
	opSave      = "SAVE"
	opFactory   = "FACTORY RESET"
	opRestart   = "RESTART"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		s.touch()
		start := time.Now()
		c.Next()
		s.log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "client", c.ClientIP(), "latency", time.Since(start))
	})

	r.GET("/", s.handleRoot)
	r.GET("/set", s.handleSet)
	r.GET("/trigger", s.handleTrigger)
	r.GET("/force-shutdown", s.handleForceShutdown)
	r.GET("/fastdata", s.handleFastData)
	r.GET("/data", s.handleData)
	r.GET("/logs", s.handleLogs)
	r.GET("/help", s.handleHelp)
	r.GET("/factory", s.handleFactory)
	r.GET("/restart", s.handleRestart)
	return r
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func httpStatus(c errcode.Code) int {
	switch c {
	case errcode.InvalidParams, errcode.OutOfRange, errcode.UnknownCommand, errcode.InvalidPayload:
		return http.StatusBadRequest
	case errcode.Timeout:
		return http.StatusGatewayTimeout
	case errcode.Busy, errcode.NotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	code := errcode.Of(err)
	c.JSON(httpStatus(code), errorBody{Code: string(code), Message: err.Error()})
}

type settingView struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

func settingViews(cur settings.Settings) []settingView {
	out := make([]settingView, 0, len(settings.Fields))
	for _, f := range settings.Fields {
		out = append(out, settingView{
			Key: f.Key, Label: f.Label, Unit: f.Unit,
			Value: f.Get(cur), Min: f.Min, Max: f.Max, Default: f.Default,
		})
	}
	return out
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   s.status.Status(),
		"settings": settingViews(s.cfg.Current()),
	})
}

// handleSet applies every non-empty field parameter in one step. Nothing
// changes or is saved unless all of them are valid.
func (s *Server) handleSet(c *gin.Context) {
	now := s.clock.NowMs()

	values := make(map[string]string)
	for _, f := range settings.Fields {
		if v := c.Query(f.Key); v != "" {
			values[f.Key] = v
		}
	}
	if errs := s.cfg.Apply(values); len(errs) > 0 {
		code := errcode.Of(errs[0])
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		c.JSON(httpStatus(code), errorBody{Code: string(code), Errors: msgs})
		return
	}
	if len(values) > 0 {
		s.ev.Info(now, opWebConfig, "Settings changed from the web interface")
		if err := s.cfg.Save(); err != nil {
			s.ev.Error(now, opSave, "Saving settings failed: %v", err)
			fail(c, err)
			return
		}
		s.ev.Success(now, opSave, "Settings saved")
		s.conn.Publish(s.conn.NewMessage(topics.SettingsChanged, types.SettingsChanged{Source: "web"}, false))
	}
	c.Redirect(http.StatusFound, "/")
}


func (s *Server) handleTrigger(c *gin.Context) {
	if _, err := s.power.Trigger(c.Request.Context(), "web"); err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleForceShutdown(c *gin.Context) {
	if _, err := s.power.ForceShutdown(c.Request.Context(), "web"); err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

// fastData is polled by the status page several times a second.
type fastData struct {
	Battery          float64        `json:"batt"`
	Audio            float64        `json:"audio"`
	Relays           bool           `json:"relays"`
	RelayStatus      string         `json:"relayStatus"`
	RelayStatusClass types.Severity `json:"relayStatusClass"`
	TimeRemaining    *uint32        `json:"timeRemaining,omitempty"`
}

func (s *Server) handleFastData(c *gin.Context) {
	st := s.status.Status()
	c.JSON(http.StatusOK, fastData{
		Battery:          st.BatteryVolts,
		Audio:            st.AudioVolts,
		Relays:           st.Active,
		RelayStatus:      st.State,
		RelayStatusClass: st.Category,
		TimeRemaining:    st.SecondsRemaining,
	})
}

type slowData struct {
	Temp    *float64 `json:"temp"`
	FanDuty uint8    `json:"fan"`
	Thermal string   `json:"thermal"`
}

func (s *Server) handleData(c *gin.Context) {
	st := s.status.Status()
	c.JSON(http.StatusOK, slowData{Temp: st.TempC, FanDuty: st.FanDuty, Thermal: st.Thermal})
}

func (s *Server) handleLogs(c *gin.Context) {
	if s.ring == nil {
		fail(c, errcode.Unsupported)
		return
	}
	c.JSON(http.StatusOK, s.ring.Dump())
}

func (s *Server) handleHelp(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": settingViews(s.cfg.Current()),
		"routes": gin.H{
			"/":               "status and settings",
			"/set?key=value":  "apply and save settings",
			"/trigger":        "start or extend like an audio signal",
			"/force-shutdown": "shut down now",
			"/fastdata":       "battery, audio and relay state",
			"/data":           "temperature and fan",
			"/logs":           "recent events, newest first",
			"/factory":        "restore and save factory settings",
			"/restart":        "restart the controller",
		},
	})
}

// handleFactory restores and saves the factory set in one step.
func (s *Server) handleFactory(c *gin.Context) {
	now := s.clock.NowMs()
	s.cfg.ResetToDefaults()
	s.ev.Warn(now, opFactory, "Factory settings restored from the web interface")
	if err := s.cfg.Save(); err != nil {
		s.ev.Error(now, opSave, "Saving settings failed: %v", err)
		fail(c, err)
		return
	}
	s.ev.Success(now, opSave, "Settings saved")
	s.conn.Publish(s.conn.NewMessage(topics.SettingsChanged, types.SettingsChanged{Source: "web", Factory: true}, false))
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleRestart(c *gin.Context) {
	s.ev.Warn(s.clock.NowMs(), opRestart, "Restart requested from the web interface")
	c.String(http.StatusOK, "restarting")
	s.conn.Publish(s.conn.NewMessage(topics.Restart, types.Restart{Source: "web"}, false))
}
