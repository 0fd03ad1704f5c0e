package controllers

import (
	"context"
	"net/http"

	"dbadminapi/models"
	"dbadminapi/services/settings"
	"dbadminapi/utils"

	"github.com/gin-gonic/gin"
)

// SettingsService is the settings, custom field and widget use case surface.
type SettingsService interface {
	FindTableSettings(ctx context.Context, t settings.Target) (*models.TableSettings, error)
	CreateTableSettings(ctx context.Context, in settings.SettingsInput) (*models.TableSettings, error)
	UpdateTableSettings(ctx context.Context, in settings.SettingsInput) (*models.TableSettings, error)
	DeleteTableSettings(ctx context.Context, t settings.Target) (*models.TableSettings, error)

	GetCustomFields(ctx context.Context, t settings.Target) ([]models.CustomField, error)
	CreateCustomField(ctx context.Context, in settings.CustomFieldInput) (*models.CustomField, error)
	UpdateCustomField(ctx context.Context, in settings.CustomFieldInput) (*models.CustomField, error)
	DeleteCustomField(ctx context.Context, in settings.CustomFieldInput) (*models.CustomField, error)

	FindTableWidgets(ctx context.Context, t settings.Target) ([]models.TableWidget, error)
	CreateOrUpdateTableWidgets(ctx context.Context, in settings.WidgetsInput) ([]models.TableWidget, error)
	DeleteTableWidget(ctx context.Context, in settings.WidgetInput) error
}

var settingsSrv SettingsService

// SetSettingsService installs the settings service used by the handlers.
func SetSettingsService(s SettingsService) {
	settingsSrv = s
}

func targetFrom(c *gin.Context) (settings.Target, error) {
	table, err := bindTableName(c)
	if err != nil {
		return settings.Target{}, err
	}
	return settings.Target{
		ConnectionID:   c.Param("connectionId"),
		TableName:      table,
		MasterPassword: c.GetHeader(MasterPasswordHeader),
		UserID:         c.GetString(utils.ContextUserID),
		UserEmail:      c.GetString(utils.ContextUserEmail),
	}, nil
}

// respond writes out or the error of a settings call.
func respond(c *gin.Context, status int, out interface{}, err error) {
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, status, out)
}

// findTableSettings returns the settings of a table, or defaults when none are stored
// @Summary Find table settings
// @Tags Settings
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Success 200 {object} models.TableSettings
// @Router /api/settings/{connectionId} [get]
func findTableSettings(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.FindTableSettings(c.Request.Context(), t)
	respond(c, http.StatusOK, out, err)
}

// createTableSettings stores settings for a table
// @Summary Create table settings
// @Description Every referenced column is checked against the live table structure
// @Tags Settings
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param masterpwd header string false "Master password"
// @Param settings body models.TableSettings true "Settings"
// @Success 201 {object} models.TableSettings
// @Failure 400 {object} utils.ErrorBody
// @Failure 409 {object} utils.ErrorBody "Settings already exist"
// @Router /api/settings/{connectionId} [post]
func createTableSettings(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var body models.TableSettings
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.CreateTableSettings(c.Request.Context(), settings.SettingsInput{Target: t, Settings: body})
	respond(c, http.StatusCreated, out, err)
}

// updateTableSettings replaces the settings of a table
// @Summary Update table settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param settings body models.TableSettings true "Settings"
// @Success 200 {object} models.TableSettings
// @Failure 404 {object} utils.ErrorBody
// @Router /api/settings/{connectionId} [put]
func updateTableSettings(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var body models.TableSettings
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.UpdateTableSettings(c.Request.Context(), settings.SettingsInput{Target: t, Settings: body})
	respond(c, http.StatusOK, out, err)
}

// deleteTableSettings removes the settings of a table with its widgets and custom fields
// @Summary Delete table settings
// @Tags Settings
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Success 200 {object} models.TableSettings
// @Router /api/settings/{connectionId} [delete]
func deleteTableSettings(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.DeleteTableSettings(c.Request.Context(), t)
	respond(c, http.StatusOK, out, err)
}

// @Summary List custom fields
// @Tags Custom fields
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Success 200 {array} models.CustomField
// @Router /api/fields/{connectionId} [get]
func getCustomFields(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.GetCustomFields(c.Request.Context(), t)
	respond(c, http.StatusOK, out, err)
}

// @Summary Create custom field
// @Tags Custom fields
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param field body models.CustomField true "Custom field"
// @Success 201 {object} models.CustomField
// @Router /api/fields/{connectionId} [post]
func createCustomField(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var body models.CustomField
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.CreateCustomField(c.Request.Context(), settings.CustomFieldInput{Target: t, Field: body})
	respond(c, http.StatusCreated, out, err)
}

// @Summary Update custom field
// @Tags Custom fields
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param fieldId path int true "Custom field ID"
// @Param tableName query string true "Table name"
// @Param field body models.CustomField true "Custom field"
// @Success 200 {object} models.CustomField
// @Router /api/field/{connectionId}/{fieldId} [put]
func updateCustomField(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	id, err := parseID(c, "fieldId")
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var body models.CustomField
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.UpdateCustomField(c.Request.Context(), settings.CustomFieldInput{Target: t, ID: id, Field: body})
	respond(c, http.StatusOK, out, err)
}

// @Summary Delete custom field
// @Tags Custom fields
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param fieldId path int true "Custom field ID"
// @Param tableName query string true "Table name"
// @Success 200 {object} models.CustomField
// @Router /api/field/{connectionId}/{fieldId} [delete]
func deleteCustomField(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	id, err := parseID(c, "fieldId")
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.DeleteCustomField(c.Request.Context(), settings.CustomFieldInput{Target: t, ID: id})
	respond(c, http.StatusOK, out, err)
}

// @Summary List table widgets
// @Tags Widgets
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Success 200 {array} models.TableWidget
// @Router /api/widgets/{connectionId} [get]
func findTableWidgets(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.FindTableWidgets(c.Request.Context(), t)
	respond(c, http.StatusOK, out, err)
}

// replaceTableWidgets replaces the widget set of a table
// @Summary Create or update table widgets
// @Tags Widgets
// @Accept json
// @Produce json
// @Param connectionId path string true "Connection ID"
// @Param tableName query string true "Table name"
// @Param widgets body []models.TableWidget true "Complete widget set"
// @Success 200 {array} models.TableWidget
// @Failure 400 {object} utils.ErrorBody
// @Router /api/widgets/{connectionId} [post]
func replaceTableWidgets(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	var body []models.TableWidget
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	out, err := settingsSrv.CreateOrUpdateTableWidgets(c.Request.Context(), settings.WidgetsInput{Target: t, Widgets: body})
	respond(c, http.StatusOK, out, err)
}

// @Summary Delete table widget
// @Tags Widgets
// @Param connectionId path string true "Connection ID"
// @Param widgetId path int true "Widget ID"
// @Param tableName query string true "Table name"
// @Success 204
// @Router /api/widget/{connectionId}/{widgetId} [delete]
func deleteTableWidget(c *gin.Context) {
	t, err := targetFrom(c)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	id, err := parseID(c, "widgetId")
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if err := settingsSrv.DeleteTableWidget(c.Request.Context(), settings.WidgetInput{Target: t, ID: id}); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterSettingsRoutes mounts the settings, custom field and widget routes on rg.
func RegisterSettingsRoutes(rg *gin.RouterGroup) {
	g := rg.Group("", requireService(settingsSrv != nil))
	{
		g.GET("/settings/:connectionId", findTableSettings)
		g.POST("/settings/:connectionId", createTableSettings)
		g.PUT("/settings/:connectionId", updateTableSettings)
		g.DELETE("/settings/:connectionId", deleteTableSettings)

		g.GET("/fields/:connectionId", getCustomFields)
		g.POST("/fields/:connectionId", createCustomField)
		g.PUT("/field/:connectionId/:fieldId", updateCustomField)
		g.DELETE("/field/:connectionId/:fieldId", deleteCustomField)

		g.GET("/widgets/:connectionId", findTableWidgets)
		g.POST("/widgets/:connectionId", replaceTableWidgets)
		g.DELETE("/widget/:connectionId/:widgetId", deleteTableWidget)
	}
}
