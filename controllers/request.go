package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"dbadminapi/services/dao"
	"dbadminapi/utils"

	"github.com/gin-gonic/gin"
)

// MasterPasswordHeader carries the caller's master password for master-encrypted connections.
const MasterPasswordHeader = "masterpwd"

// tableQuery is the query string every table-scoped route requires.
type tableQuery struct {
	TableName string `form:"tableName" validate:"required"`
}

func bindTableName(c *gin.Context) (string, error) {
	var q tableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return "", err
	}
	if err := utils.ValidateStruct(&q); err != nil {
		return "", err
	}
	return q.TableName, nil
}

// decodeJSON decodes the request body keeping numbers as json.Number so large keys survive.
func decodeJSON(c *gin.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// primaryKeyFromQuery collects every query parameter except tableName into a primary key.
func primaryKeyFromQuery(c *gin.Context) (dao.Row, error) {
	pk := dao.Row{}
	for key, values := range c.Request.URL.Query() {
		if key == "tableName" || len(values) == 0 {
			continue
		}
		pk[key] = values[0]
	}
	if len(pk) == 0 {
		return nil, errors.New("primary key is required in the query string")
	}
	return pk, nil
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", param, c.Param(param))
	}
	return uint(id), nil
}
