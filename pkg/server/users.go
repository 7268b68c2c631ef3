package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

const repositoryKey = "repository"

// withRepository resolves the :database path segment to a driver before any
// handler runs. Unknown backends 404 without touching the registry's
// construction path.
func (s *Server) withRepository() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("database")
		repo := s.registry.Resolve(name)
		if repo == nil {
			writeError(c, http.StatusNotFound, errNotFound, "unknown database type: "+name)
			c.Abort()
			return
		}
		c.Set(repositoryKey, repo)
		c.Next()
	}
}

func repository(c *gin.Context) userstore.Repository {
	return c.MustGet(repositoryKey).(userstore.Repository)
}

func (s *Server) registerDBRoutes(g *gin.RouterGroup) {
	db := g.Group("/:database")
	db.Use(s.withRepository())
	db.POST("/users", createUser)
	db.GET("/users/:id", getUser)
	db.PATCH("/users/:id", updateUser)
	db.DELETE("/users/:id", deleteUser)
	db.DELETE("/users", deleteAllUsers)
	db.DELETE("/reset", resetDatabase)
	db.GET("/health", backendHealth)
}

func createUser(c *gin.Context) {
	var data userstore.CreateUser
	if err := c.ShouldBindJSON(&data); err != nil {
		writeError(c, http.StatusBadRequest, errInvalidJSON, err)
		return
	}

	user, err := repository(c).Create(c.Request.Context(), &data)
	if err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func getUser(c *gin.Context) {
	id := c.Param("id")
	user, err := repository(c).FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	if user == nil {
		writeError(c, http.StatusNotFound, errNotFound, "user with id "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func updateUser(c *gin.Context) {
	var data userstore.UpdateUser
	if err := c.ShouldBindJSON(&data); err != nil {
		writeError(c, http.StatusBadRequest, errInvalidJSON, err)
		return
	}

	id := c.Param("id")
	user, err := repository(c).Update(c.Request.Context(), id, &data)
	if err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	if user == nil {
		writeError(c, http.StatusNotFound, errNotFound, "user with id "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func deleteUser(c *gin.Context) {
	id := c.Param("id")
	deleted, err := repository(c).Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	if !deleted {
		writeError(c, http.StatusNotFound, errNotFound, "user with id "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func deleteAllUsers(c *gin.Context) {
	if err := repository(c).DeleteAll(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func resetDatabase(c *gin.Context) {
	if err := repository(c).DeleteAll(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, errInternal, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func backendHealth(c *gin.Context) {
	if !repository(c).HealthCheck(c.Request.Context()) {
		writeError(c, http.StatusServiceUnavailable, errUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
