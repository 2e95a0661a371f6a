package progresssim

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts the fixture routes:
//
//	POST /jobs/:id/start
//	GET  /jobs/:id/progress
//	GET  /jobs
func (s *Simulator) Register(r gin.IRouter) {
	r.POST("/jobs/:id/start", s.handleStart)
	r.GET("/jobs/:id/progress", s.handleProgress)
	r.GET("/jobs", s.handleList)
}

func (s *Simulator) handleStart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"started": s.Job(c.Param("id")).Start()})
}

func (s *Simulator) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.Job(c.Param("id")).Poll())
}

func (s *Simulator) handleList(c *gin.Context) {
	out := make(map[string]any)
	for _, id := range s.IDs() {
		out[id] = s.Job(id).State()
	}
	c.JSON(http.StatusOK, out)
}
