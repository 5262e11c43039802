// CapturesData is a paginated response payload for the capture ledger.
package dto

import "facewatch/internal/model"

type CapturesData struct {
	Captures    []model.Capture `json:"captures"`
	ScratchDir  string          `json:"scratchDir"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}
