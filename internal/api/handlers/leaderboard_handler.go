package handlers

import (
	"net/http"
	"strconv"
	"time"

	"recycle-pickup-api-server/internal/api/middleware"
	"recycle-pickup-api-server/internal/leaderboard"

	"github.com/gin-gonic/gin"
)

const maxLeaderboardLimit = 200

type LeaderboardHandler struct {
	Aggregator   *leaderboard.Aggregator
	DefaultLimit int
}

type LeaderboardResponse struct {
	Period  leaderboard.Period  `json:"period"`
	Scope   string              `json:"scope"`
	Start   time.Time           `json:"start"`
	End     time.Time           `json:"end"`
	Total   int                 `json:"total"`
	Offset  int                 `json:"offset"`
	Entries []leaderboard.Entry `json:"entries"`
}

// GetLeaderboard serves one page of a ranking. scope=community uses the
// community query value, falling back to the caller's own community.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	period, err := leaderboard.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scope := leaderboard.Global()
	switch c.DefaultQuery("scope", "global") {
	case "global":
	case "community":
		id := c.DefaultQuery("community", c.GetString(middleware.KeyCommunityID))
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "community scope requires a community"})
			return
		}
		scope = leaderboard.Community(id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be global or community"})
		return
	}

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}
	limit, err := queryInt(c, "limit", h.DefaultLimit)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	ranking, err := h.Aggregator.Rank(c.Request.Context(), period, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LeaderboardResponse{
		Period:  ranking.Period,
		Scope:   ranking.Scope,
		Start:   ranking.Start,
		End:     ranking.End,
		Total:   ranking.Len(),
		Offset:  offset,
		Entries: ranking.Page(offset, limit),
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
