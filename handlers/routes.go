package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func Routes(m *mux.Router) {
	m.Methods(http.MethodGet).Path("/").HandlerFunc(Index)
	m.Methods(http.MethodGet).Path("/ranking").HandlerFunc(Ranking)
	m.Methods(http.MethodGet).Path("/add").HandlerFunc(Add)
	m.Methods(http.MethodPost).Path("/add").HandlerFunc(AddAction)
	m.Methods(http.MethodGet).Path("/jobs").HandlerFunc(Jobs)

	m.Methods(http.MethodGet).Path("/cut/get/all").HandlerFunc(CutsJSON)
	m.Methods(http.MethodGet).Path("/cut/get/ranking").HandlerFunc(RankingJSON)
	m.Methods(http.MethodPost).Path("/upvote/create/{id}").HandlerFunc(UpvoteCreate)
	m.Methods(http.MethodPost).Path("/upvote/remove/{id}").HandlerFunc(UpvoteRemove)
	m.Methods(http.MethodGet).Path("/upvote/get/all").HandlerFunc(UpvotesJSON)
}
