package handler

import "github.com/gin-gonic/gin"

// bindJSON decodes the request body into a fresh value of the request type.
// Field validation is a separate step; this only covers malformed JSON and
// type mismatches.
func bindJSON[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	return params, nil
}
