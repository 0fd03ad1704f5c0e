package controllers

import (
	"context"
	"errors"
	"net/http"

	"dbadminapi/services/dao"
	"dbadminapi/services/rows"
	"dbadminapi/utils"

	"github.com/gin-gonic/gin"
)

// RowService is the row use case surface the handlers call.
type RowService interface {
	AddRow(ctx context.Context, in rows.AddRowInput) (*rows.RowResponse, error)
	UpdateRow(ctx context.Context, in rows.UpdateRowInput) (*rows.RowResponse, error)
	DeleteRow(ctx context.Context, in rows.DeleteRowInput) (*rows.RowResponse, error)
	GetRowByPrimaryKey(ctx context.Context, in rows.GetRowInput) (*rows.RowResponse, error)
}

var rowSrv RowService

// SetRowService installs the row service used by the handlers.
func SetRowService(s RowService) {
	rowSrv = s
}

func callerFrom(c *gin.Context) (rows.Caller, error) {
	table, err := bindTableName(c)
	if err != nil {
		return rows.Caller{}, err
	}
	return rows.Caller{
		ConnectionID:   c.Param("connectionId"),
		TableName:      table,
		MasterPassword: c.GetHeader(MasterPasswordHeader),
		UserID:         c.GetString(utils.ContextUserID),
		UserEmail:      c.GetString(utils.ContextUserEmail),
	}, nil
}

// addRow inserts a row
// @Summary Add row
// @Description Validates, transforms and inserts a row, then returns it as stored
// @Tags Rows
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param masterpwd header string false "Master password"
// @Param row body map[string]interface{} true "Row values by column"
// @Success 201 {object} rows.RowResponse
// @Failure 400 {object} utils.ErrorBody
// @Failure 409 {object} utils.ErrorBody "Duplicate key"
// @Router /api/table/row/{connectionId} [post]
func addRow(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var row dao.Row
	if err := decodeJSON(c, &row); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	resp, err := rowSrv.AddRow(c.Request.Context(), rows.AddRowInput{Caller: caller, Row: row})
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusCreated, resp)
}

// updateRow updates the row identified by the primary key in the query string
// @Summary Update row
// @Tags Rows
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param masterpwd header string false "Master password"
// @Param row body map[string]interface{} true "Changed values by column"
// @Success 200 {object} rows.RowResponse
// @Failure 400 {object} utils.ErrorBody
// @Failure 404 {object} utils.ErrorBody "Row not found"
// @Router /api/table/row/{connectionId} [put]
func updateRow(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	pk, err := primaryKeyFromQuery(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var row dao.Row
	if err := decodeJSON(c, &row); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	resp, err := rowSrv.UpdateRow(c.Request.Context(), rows.UpdateRowInput{Caller: caller, Row: row, PrimaryKey: pk})
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, resp)
}

// deleteRow removes the row identified by the primary key in the query string
// @Summary Delete row
// @Tags Rows
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param masterpwd header string false "Master password"
// @Success 200 {object} rows.RowResponse
// @Failure 404 {object} utils.ErrorBody "Row not found"
// @Router /api/table/row/{connectionId} [delete]
func deleteRow(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	pk, err := primaryKeyFromQuery(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	resp, err := rowSrv.DeleteRow(c.Request.Context(), rows.DeleteRowInput{Caller: caller, PrimaryKey: pk})
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, resp)
}

// getRow reads one row with the table description
// @Summary Get row by primary key
// @Tags Rows
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param masterpwd header string false "Master password"
// @Success 200 {object} rows.RowResponse
// @Failure 404 {object} utils.ErrorBody "Row not found"
// @Router /api/table/row/{connectionId} [get]
func getRow(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	pk, err := primaryKeyFromQuery(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	resp, err := rowSrv.GetRowByPrimaryKey(c.Request.Context(), rows.GetRowInput{Caller: caller, PrimaryKey: pk})
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, resp)
}

var errServiceNotConfigured = errors.New("service not configured")

func requireService(ok bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ok {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, utils.ErrorBody{Error: errServiceNotConfigured.Error(), Code: "UNAVAILABLE"})
			return
		}
		c.Next()
	}
}

// RegisterRowRoutes mounts the row routes on rg.
func RegisterRowRoutes(rg *gin.RouterGroup) {
	row := rg.Group("/table/row", requireService(rowSrv != nil))
	{
		row.POST("/:connectionId", addRow)
		row.PUT("/:connectionId", updateRow)
		row.DELETE("/:connectionId", deleteRow)
		row.GET("/:connectionId", getRow)
	}
}
