package handlers

import (
	"net/http"
	"testing"

	"pgregory.net/rapid"

	"github.com/Novip1906/todo-api/internal/models"
)

// TestOwnershipIsolation drives random interleavings of two callers and
// checks each one only ever sees and changes the tasks it created.
func TestOwnershipIsolation(t *testing.T) {
	callers := []string{"alice", "bob"}
	tokens := map[string]string{}
	for _, c := range callers {
		tokens[c] = tokenFor(t, c)
	}

	rapid.Check(t, func(rt *rapid.T) {
		api := newTestAPI(rt)
		owner := map[string]string{}
		var ids []string

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			actor := rapid.SampledFrom(callers).Draw(rt, "actor")
			token := tokens[actor]

			switch op := rapid.IntRange(0, 3).Draw(rt, "op"); {
			case op == 0 || len(ids) == 0:
				task := api.create(token, rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "text"))
				owner[task.Id] = actor
				ids = append(ids, task.Id)
			case op == 1:
				id := rapid.SampledFrom(ids).Draw(rt, "id")
				rec := api.do(http.MethodPut, "/todo/"+id, token, updateBody("changed", true))
				want := http.StatusNotFound
				if owner[id] == actor {
					want = http.StatusOK
				}
				if rec.Code != want {
					rt.Fatalf("%s PUT %s (owner %q) = %d, want %d", actor, id, owner[id], rec.Code, want)
				}
			case op == 2:
				id := rapid.SampledFrom(ids).Draw(rt, "id")
				rec := api.do(http.MethodDelete, "/todo/"+id, token, nil)
				want := http.StatusNotFound
				if owner[id] == actor {
					want = http.StatusOK
					delete(owner, id)
				}
				if rec.Code != want {
					rt.Fatalf("%s DELETE %s = %d, want %d", actor, id, rec.Code, want)
				}
			case op == 3:
				api.do(http.MethodDelete, "/todo", token, nil)
				for id, o := range owner {
					if o == actor {
						delete(owner, id)
					}
				}
			}

			for _, c := range callers {
				assertOwnView(rt, api.list("/todo", tokens[c]), c, owner)
			}
		}
	})
}

func assertOwnView(rt *rapid.T, tasks []models.Task, caller string, owner map[string]string) {
	want := 0
	for _, o := range owner {
		if o == caller {
			want++
		}
	}
	if len(tasks) != want {
		rt.Fatalf("%s sees %d tasks, want %d", caller, len(tasks), want)
	}
	for _, task := range tasks {
		if owner[task.Id] != caller || task.OwnerId != caller {
			rt.Fatalf("%s sees task %s owned by %q", caller, task.Id, owner[task.Id])
		}
	}
}
