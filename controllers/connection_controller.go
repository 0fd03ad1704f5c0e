package controllers

import (
	"context"
	"net/http"

	"dbadminapi/pkg/logger"
	"dbadminapi/services/connection"
	"dbadminapi/utils"

	"github.com/gin-gonic/gin"
)

// ConnectionService exposes master password rotation and agent token issuance.
type ConnectionService interface {
	ChangeMasterPassword(ctx context.Context, in connection.ChangeMasterPasswordInput) error
	CreateAgentToken(ctx context.Context, connectionID string) (string, error)
}

// ConnectionTester checks that a connection answers and lists its tables.
type ConnectionTester interface {
	TestConnection(ctx context.Context, id, masterPwd, userID string) (*connection.TestResult, error)
}

var (
	connectionSrv    ConnectionService
	connectionTester ConnectionTester
)

// SetConnectionService installs the connection service used by the handlers.
func SetConnectionService(s ConnectionService) {
	connectionSrv = s
}

// SetConnectionTester installs the tester used by the test route.
func SetConnectionTester(t ConnectionTester) {
	connectionTester = t
}

// ChangeMasterPasswordRequest is the body of the master password route.
type ChangeMasterPasswordRequest struct {
	OldPassword string `json:"oldMasterPwd"`
	NewPassword string `json:"newMasterPwd" validate:"required,min=8"`
}

// changeMasterPassword re-encrypts every credential of a connection under a new master password
// @Summary Change master password
// @Tags Connections
// @Accept json
// @Param connectionId path string true "Connection ID"
// @Param body body ChangeMasterPasswordRequest true "Old and new master password"
// @Success 204
// @Failure 400 {object} utils.ErrorBody "Old master password incorrect"
// @Router /api/connection/{connectionId}/master-password [post]
func changeMasterPassword(c *gin.Context) {
	var req ChangeMasterPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	id := c.Param("connectionId")
	err := connectionSrv.ChangeMasterPassword(c.Request.Context(), connection.ChangeMasterPasswordInput{
		ConnectionID: id,
		OldPassword:  req.OldPassword,
		NewPassword:  req.NewPassword,
	})
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	logger.Infof("Master password changed for connection %s by %s", id, c.GetString(utils.ContextUserID))
	c.Status(http.StatusNoContent)
}

// createAgentToken issues a new agent token, revoking the previous one
// @Summary Create agent token
// @Tags Connections
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Success 201 {object} map[string]string "token"
// @Failure 403 {object} utils.ErrorBody "Not an agent connection"
// @Router /api/connection/{connectionId}/agent-token [post]
func createAgentToken(c *gin.Context) {
	token, err := connectionSrv.CreateAgentToken(c.Request.Context(), c.Param("connectionId"))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusCreated, gin.H{"token": token})
}

// testConnection opens the connection and lists its tables
// @Summary Test connection
// @Tags Connections
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param masterpwd header string false "Master password"
// @Success 200 {object} connection.TestResult
// @Failure 400 {object} utils.ErrorBody "Master password missing or incorrect"
// @Failure 404 {object} utils.ErrorBody "Connection not found"
// @Router /api/connection/{connectionId}/test [get]
func testConnection(c *gin.Context) {
	res, err := connectionTester.TestConnection(c.Request.Context(), c.Param("connectionId"),
		c.GetHeader(MasterPasswordHeader), c.GetString(utils.ContextUserID))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, res)
}

// RegisterConnectionRoutes mounts the connection routes on rg.
func RegisterConnectionRoutes(rg *gin.RouterGroup) {
	conn := rg.Group("/connection", requireService(connectionSrv != nil))
	{
		conn.POST("/:connectionId/master-password", changeMasterPassword)
		conn.POST("/:connectionId/agent-token", createAgentToken)
		conn.GET("/:connectionId/test", requireService(connectionTester != nil), testConnection)
	}
}
