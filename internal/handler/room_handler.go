/*
Package handler provides the HTTP handler function for the read-only room listing.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"lobby/internal/app/lobby"
	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/logx"
	"lobby/internal/pkg/resp"
)

// snapshotTimeout bounds how long a listing waits for the session loop.
const snapshotTimeout = 2 * time.Second

// HandleListRooms returns every room with its status and ordered members. The optional
// "status" query parameter ("waiting" or "running") filters the list.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := lobby.RoomStatus(r.URL.Query().Get("status"))
		if filter != "" && filter != lobby.RoomWaiting && filter != lobby.RoomRunning {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()

		rooms, err := deps.Session.Snapshot(ctx)
		if err != nil {
			logx.Error(err, "Failed to take room snapshot")
			resp.RespondError(w, errs.NewError(errs.ErrServerBusy))
			return
		}

		views := make([]lobby.RoomView, 0, len(rooms))
		for _, room := range rooms {
			if filter == "" || room.Status == filter {
				views = append(views, room)
			}
		}

		resp.RespondSuccess(w, views)
	}
}
