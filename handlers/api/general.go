package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/utils"
)

type ApiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ApiTableResponseV1 is the json rendition of one table page.
type ApiTableResponseV1 struct {
	View       *tableview.View `json:"view"`
	Limit      uint64          `json:"limit"`
	Cursor     string          `json:"cursor,omitempty"`
	NextCursor string          `json:"next_cursor,omitempty"`
	Count      *uint64         `json:"count,omitempty"`
}

func parseTableParams(r *http.Request) (limit uint64, cursor string, err error) {
	query := r.URL.Query()
	limit = utils.ParseLimit(query.Get("limit"), utils.Config.Tables.DefaultLimit, utils.Config.Tables.MaxLimit)
	cursor = query.Get("cursor")
	if !utils.IsValidCursor(cursor) {
		return 0, "", fmt.Errorf("invalid cursor: %v", cursor)
	}
	return limit, cursor, nil
}

// serveTableV1 loads one page of a table and writes it as api response.
func serveTableV1[T any](w http.ResponseWriter, r *http.Request, def *tableview.Definition[T]) {
	w.Header().Set("Content-Type", "application/json")

	limit, cursor, err := parseTableParams(r)
	if err != nil {
		sendBadRequestResponse(w, r.URL.String(), err.Error())
		return
	}

	view, err := tableview.New(def, services.GlobalQueryCache, tableview.Options{
		InitialCursor: cursor,
		InitialLimit:  limit,
		LimitOptions:  utils.Config.Tables.LimitOptions,
		MaxLimit:      utils.Config.Tables.MaxLimit,
	}, logrus.WithField("module", "api"))
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), err.Error())
		return
	}
	defer view.Close()

	err = view.Load(r.Context())
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), err.Error())
		return
	}

	rendered := view.Render()
	response := &ApiTableResponseV1{
		View:   rendered,
		Limit:  view.Limit(),
		Cursor: view.Cursor(),
		Count:  rendered.Footer.Count,
	}
	if controls := rendered.Footer.Pagination; controls != nil {
		response.NextCursor = controls.NextCursor
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{response})
}

func sendBadRequestResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusBadRequest)
}

func sendServerErrorResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusInternalServerError)
}

func sendErrorWithCodeResponse(w http.ResponseWriter, route, message string, errorcode int) {
	w.WriteHeader(errorcode)
	j := json.NewEncoder(w)
	response := &ApiResponse{}
	response.Status = "ERROR: " + message
	err := j.Encode(response)

	if err != nil {
		logrus.Errorf("error serializing json error for API %v route: %v", route, err)
	}
}

func SendOKResponse(j *json.Encoder, route string, data []interface{}) {
	response := &ApiResponse{}
	response.Status = "OK"

	if len(data) == 1 {
		response.Data = data[0]
	} else {
		response.Data = data
	}
	err := j.Encode(response)

	if err != nil {
		logrus.Errorf("error serializing json data for API %v route: %v", route, err)
	}
}
