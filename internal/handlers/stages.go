package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/stages"
)

type StagesHandler struct {
	machine *stages.Machine
}

func NewStagesHandler(machine *stages.Machine) *StagesHandler {
	return &StagesHandler{machine: machine}
}

// GetStages godoc
// @Summary     Production stages
// @Description The configured stage sequence, in order, and the transition policy.
// @Tags        stages
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.StagesResponse
// @Router      /stages [get]
func (h *StagesHandler) GetStages(c *gin.Context) {
	seq := h.machine.Sequence()
	c.JSON(http.StatusOK, models.StagesResponse{
		Stages:                    seq.Stages,
		Intake:                    seq.Intake(),
		Terminal:                  seq.Terminal(),
		MeasureFrom:               seq.MeasureFrom,
		AllowArbitraryTransitions: h.machine.Policy().AllowArbitraryTransitions,
	})
}
