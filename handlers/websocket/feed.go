package websocket

import (
	"sync"

	"memeverse/core"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// feedRoom is joined by every connection; meme rooms are joined on demand
// so detail views only hear about their own record.
const feedRoom = socketio.Room("feed")

func memeRoom(id string) socketio.Room {
	return socketio.Room("meme:" + id)
}

// Feed broadcasts like and comment events to connected browsers over
// Socket.IO.
type Feed struct {
	srv *socketio.Server

	mu       sync.RWMutex
	watchers map[string]int
}

// SetupSocketIO builds the Socket.IO server and wires the room protocol:
// every client lands in the global feed room, "watch-meme"/"unwatch-meme"
// subscribe a client to a single meme's events.
func SetupSocketIO() *Feed {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	f := &Feed{
		srv:      socketio.NewServer(nil, opts),
		watchers: make(map[string]int),
	}

	f.srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		socket.Join(feedRoom)
		utils.Log().Printf("socket %v joined the feed\n", socket.Id())

		socket.On("watch-meme", func(datas ...any) {
			if len(datas) == 0 {
				return
			}
			memeID, ok := datas[0].(string)
			if !ok || memeID == "" {
				return
			}
			socket.Join(memeRoom(memeID))
			f.addWatcher(memeID, 1)
			utils.Log().Printf("socket %v watches meme %v\n", socket.Id(), memeID)
		})

		socket.On("unwatch-meme", func(datas ...any) {
			if len(datas) == 0 {
				return
			}
			memeID, ok := datas[0].(string)
			if !ok || memeID == "" {
				return
			}
			socket.Leave(memeRoom(memeID))
			f.addWatcher(memeID, -1)
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
		})
	})

	return f
}

// Server exposes the underlying Socket.IO server for mounting.
func (f *Feed) Server() *socketio.Server {
	return f.srv
}

func (f *Feed) addWatcher(memeID string, delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers[memeID] += delta
	if f.watchers[memeID] <= 0 {
		delete(f.watchers, memeID)
	}
}

// Watchers reports how many sockets watch each meme.
func (f *Feed) Watchers() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int, len(f.watchers))
	for id, n := range f.watchers {
		out[id] = n
	}
	return out
}

// MemeLiked announces a like-count change to watchers of the meme and the
// global feed.
func (f *Feed) MemeLiked(memeID string, likeCount int, liked bool) {
	payload := map[string]any{
		"memeId": memeID,
		"likes":  likeCount,
		"liked":  liked,
	}
	_ = f.srv.To(memeRoom(memeID)).Emit("meme-liked", payload)
	_ = f.srv.To(feedRoom).Emit("meme-liked", payload)
}

// MemeCommented announces a new comment the same way.
func (f *Feed) MemeCommented(memeID string, comment core.Comment) {
	payload := map[string]any{
		"memeId":  memeID,
		"comment": comment,
	}
	_ = f.srv.To(memeRoom(memeID)).Emit("meme-commented", payload)
	_ = f.srv.To(feedRoom).Emit("meme-commented", payload)
}

// Close shuts the Socket.IO server down.
func (f *Feed) Close() {
	f.srv.Close(nil)
}
