package handlers

import (
	"errors"
	"strconv"

	"pickup-backend/internal/models"
)

const maxPageLimit = 100

var errInvalidPagination = errors.New("page and limit must be positive integers")

// parsePaginationParams pages only when both values are present.
func parsePaginationParams(pageStr, limitStr string) (models.Page, error) {
	if pageStr == "" && limitStr == "" {
		return models.Page{}, nil
	}

	var page models.Page
	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return models.Page{}, errInvalidPagination
		}
		page.Page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return models.Page{}, errInvalidPagination
		}
		if l > maxPageLimit {
			l = maxPageLimit
		}
		page.Limit = l
	}

	if !page.Enabled() {
		return models.Page{}, nil
	}
	return page, nil
}
