package get_history

import (
	"net/http"

	"imagen/api"
	"imagen/docs"
	"imagen/state"
	"imagen/types"

	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Get History",
		Description: "Gets the callers archived generations, newest first. History records survive task expiry.",
		Resp:        types.HistoryList{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	recs, err := state.History.ForUser(d.Context, d.Auth.ID)

	if err != nil {
		state.Logger.Error("Failed to fetch history", zap.String("userID", d.Auth.ID), zap.Error(err))
		return api.DefaultResponse(http.StatusInternalServerError)
	}

	if recs == nil {
		recs = []types.HistoryRecord{}
	}

	return api.HttpResponse{
		Json: types.HistoryList{
			History: recs,
		},
	}
}
