package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Action names one operation of the action endpoint.
type Action string

// Read actions (GET)
const (
	ActionGetTodayStatusCount Action = "getTodayStatusCount"
	ActionGetTotalStatusCount Action = "getTotalStatusCount"
	ActionGetTodaysData       Action = "getTodaysData"
	ActionGetRecord           Action = "getRecord"
	ActionSearchRecords       Action = "searchRecords"
	ActionGetContestData      Action = "getContestData"
	ActionGetContests         Action = "getContests"
	ActionGetActiveContests   Action = "getActiveContests"
	ActionGetContestProgress  Action = "getContestProgress"
)

// Write actions (POST)
const (
	ActionAddRecord     Action = "addRecord"
	ActionUpdateRecord  Action = "updateRecord"
	ActionDeleteRecord  Action = "deleteRecord"
	ActionSaveContest   Action = "saveContest"
	ActionDeleteContest Action = "deleteContest"
)

// actionMethods is the closed set of actions and the method each requires.
var actionMethods = map[Action]string{
	ActionGetTodayStatusCount: http.MethodGet,
	ActionGetTotalStatusCount: http.MethodGet,
	ActionGetTodaysData:       http.MethodGet,
	ActionGetRecord:           http.MethodGet,
	ActionSearchRecords:       http.MethodGet,
	ActionGetContestData:      http.MethodGet,
	ActionGetContests:         http.MethodGet,
	ActionGetActiveContests:   http.MethodGet,
	ActionGetContestProgress:  http.MethodGet,
	ActionAddRecord:           http.MethodPost,
	ActionUpdateRecord:        http.MethodPost,
	ActionDeleteRecord:        http.MethodPost,
	ActionSaveContest:         http.MethodPost,
	ActionDeleteContest:       http.MethodPost,
}

// UnknownActionError reports an action name outside the closed set.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Name)
}

// ParseAction validates name against the known actions.
func ParseAction(name string) (Action, error) {
	a := Action(name)
	if _, ok := actionMethods[a]; !ok {
		return "", &UnknownActionError{Name: name}
	}
	return a, nil
}

// Method is the HTTP method the action must arrive with.
func (a Action) Method() string {
	return actionMethods[a]
}

// result is what a successful action hands back to the envelope.
type result struct {
	message string
	data    any
}

// handlerFunc runs one action against the parsed query or form values.
type handlerFunc func(ctx context.Context, params url.Values) (result, error)

// handlers binds every action to its implementation.
func (a *api) handlers() map[Action]handlerFunc {
	return map[Action]handlerFunc{
		ActionGetTodayStatusCount: a.getTodayStatusCount,
		ActionGetTotalStatusCount: a.getTotalStatusCount,
		ActionGetTodaysData:       a.getTodaysData,
		ActionGetRecord:           a.getRecord,
		ActionSearchRecords:       a.searchRecords,
		ActionGetContestData:      a.getContestData,
		ActionGetContests:         a.getContests,
		ActionGetActiveContests:   a.getActiveContests,
		ActionGetContestProgress:  a.getContestProgress,
		ActionAddRecord:           a.addRecord,
		ActionUpdateRecord:        a.updateRecord,
		ActionDeleteRecord:        a.deleteRecord,
		ActionSaveContest:         a.saveContest,
		ActionDeleteContest:       a.deleteContest,
	}
}
