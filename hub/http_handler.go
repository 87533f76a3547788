package hub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
)

// start http server ,this function must be in a routine
func httplisten(hub *Hub, conf *config.ServerConfig) {
	log.Println("listen on ", conf.Listen)
	err := http.ListenAndServe(conf.Listen, NewServeMux(hub))
	if err != nil {
		log.Println("ListenAndServe: ", err)
		return
	}
}

// NewServeMux 注册全部 REST 接口和 websocket 入口
func NewServeMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleClientWebSocket(hub, w, r)
	})

	mux.HandleFunc("/signup", hub.handleSignup)
	mux.HandleFunc("/login", hub.handleLogin)
	mux.HandleFunc("/profile", hub.handleProfile)

	mux.HandleFunc("/channels", hub.handleListChannels)
	mux.HandleFunc("/channel", hub.handleCreateChannel)
	mux.HandleFunc("/channel/join", hub.handleJoinChannel)
	mux.HandleFunc("/channel/invite", hub.handleInvite)
	mux.HandleFunc("/channel/kick", hub.handleKick)
	mux.HandleFunc("/channel/ban", hub.handleBan)
	mux.HandleFunc("/channel/delete", hub.handleDeleteChannel)

	mux.HandleFunc("/messages", hub.handleChannelHistory)
	mux.HandleFunc("/search/messages", hub.handleSearchMessages)

	mux.HandleFunc("/friend-request", hub.handleFriendRequest)
	mux.HandleFunc("/friend-accept", hub.handleFriendAccept)
	mux.HandleFunc("/friend-decline", hub.handleFriendDecline)
	mux.HandleFunc("/friends", hub.handleFriends)
	mux.HandleFunc("/friends-pending-incoming", hub.handleFriendsIncoming)
	mux.HandleFunc("/friends-pending-outgoing", hub.handleFriendsOutgoing)

	mux.HandleFunc("/dm-history", hub.handleDmHistory)

	return mux
}

// 处理来自客户端的 websocket 连接
func handleClientWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	peerID := fmt.Sprintf("%v", r.RemoteAddr)
	clientPeer := newClientPeer(peerID, hub, conn)
	hub.packetQueue <- &Packet{use: useForAddConn, peer: clientPeer}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondErr(w http.ResponseWriter, err error) {
	respondJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

func respondOK(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// errStatus 错误分类到状态码。校验/冲突/缺失 400，凭证 401，
// 授权 403，其余按存储故障处理
func errStatus(err error) int {
	switch err {
	case database.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case database.ErrForbidden, database.ErrBanned, database.ErrMembershipRequired:
		return http.StatusForbidden
	case database.ErrInvalidHandle, database.ErrInvalidPassword, database.ErrInvalidName,
		database.ErrInvalidPair, database.ErrDuplicateHandle, database.ErrNameTaken,
		database.ErrUnknownUser, database.ErrChannelNotFound, database.ErrNotPrivate,
		database.ErrNotFound, errMissingFields:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errMissingFields = fmt.Errorf("missing fields")

func decodeBody(r *http.Request, body interface{}) error {
	return json.NewDecoder(r.Body).Decode(body)
}

func (h *Hub) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil || body.Username == "" || body.Password == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.Register(body.Username, body.Password); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil || body.Username == "" || body.Password == "" {
		respondErr(w, errMissingFields)
		return
	}
	handle, err := h.store.Authenticate(body.Username, body.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "username": handle})
}

func (h *Hub) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		username := r.URL.Query().Get("username")
		if username == "" {
			respondErr(w, errMissingFields)
			return
		}
		acc, err := h.store.GetProfile(username)
		if err == database.ErrUnknownUser {
			respondJSON(w, http.StatusOK, map[string]string{})
			return
		}
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"username": acc.Handle,
			"bio":      acc.Bio,
			"status":   acc.Status,
			"lastSeen": acc.LastSeen,
		})
		return
	}

	var body struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Status   string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil || body.Username == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.SetProfile(body.Username, body.Bio, body.Status); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.ListChannels()
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, []interface{}{})
		return
	}
	out := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		out = append(out, map[string]interface{}{
			"name":      ch.Name,
			"isPrivate": ch.IsPrivate,
			"creator":   ch.Creator,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Hub) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		Creator   string `json:"creator"`
		IsPrivate bool   `json:"isPrivate"`
	}
	if err := decodeBody(r, &body); err != nil || body.Name == "" || body.Creator == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.CreateChannel(body.Name, body.Creator, body.IsPrivate); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel  string `json:"channel"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &body); err != nil || body.Channel == "" || body.Username == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.Join(body.Channel, body.Username); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
		Inviter string `json:"inviter"`
		Invitee string `json:"invitee"`
	}
	if err := decodeBody(r, &body); err != nil || body.Channel == "" || body.Inviter == "" || body.Invitee == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.Invite(body.Channel, body.Inviter, body.Invitee); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleKick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
		Admin   string `json:"admin"`
		Target  string `json:"target"`
	}
	if err := decodeBody(r, &body); err != nil || body.Channel == "" || body.Admin == "" || body.Target == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.Kick(body.Channel, body.Admin, body.Target); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleBan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
		Admin   string `json:"admin"`
		Target  string `json:"target"`
	}
	if err := decodeBody(r, &body); err != nil || body.Channel == "" || body.Admin == "" || body.Target == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.Ban(body.Channel, body.Admin, body.Target); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel  string `json:"channel"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &body); err != nil || body.Channel == "" || body.Username == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.DeleteChannel(body.Channel, body.Username); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func channelMsgsJSON(msgs []database.ChannelMessage) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]interface{}{
			"channel":   m.Channel,
			"user":      m.User,
			"text":      m.Text,
			"timestamp": m.Timestamp,
		})
	}
	return out
}

func (h *Hub) handleChannelHistory(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		respondJSON(w, http.StatusOK, []interface{}{})
		return
	}
	msgs, err := h.store.ChannelHistory(channel, database.HistoryLimit)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, []interface{}{})
		return
	}
	respondJSON(w, http.StatusOK, channelMsgsJSON(msgs))
}

func (h *Hub) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	channel := r.URL.Query().Get("channel")
	if query == "" {
		respondJSON(w, http.StatusOK, []interface{}{})
		return
	}
	msgs, err := h.store.SearchMessages(query, channel, database.SearchLimit)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, []interface{}{})
		return
	}
	respondJSON(w, http.StatusOK, channelMsgsJSON(msgs))
}

func (h *Hub) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.RequestFriend(body.From, body.To); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) respondToFriendRequest(w http.ResponseWriter, r *http.Request, accept bool) {
	var body struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &body); err != nil || body.From == "" || body.To == "" || body.Actor == "" {
		respondErr(w, errMissingFields)
		return
	}
	if err := h.store.RespondToRequest(body.From, body.To, body.Actor, accept); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w)
}

func (h *Hub) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	h.respondToFriendRequest(w, r, true)
}

func (h *Hub) handleFriendDecline(w http.ResponseWriter, r *http.Request) {
	h.respondToFriendRequest(w, r, false)
}

func friendsJSON(friends []database.Friend) []map[string]string {
	out := make([]map[string]string, 0, len(friends))
	for _, f := range friends {
		out = append(out, map[string]string{
			"requester": f.Requester,
			"receiver":  f.Receiver,
		})
	}
	return out
}

func (h *Hub) handleFriends(w http.ResponseWriter, r *http.Request) {
	h.listFriends(w, r, h.store.ListFriends)
}

func (h *Hub) handleFriendsIncoming(w http.ResponseWriter, r *http.Request) {
	h.listFriends(w, r, h.store.ListIncoming)
}

func (h *Hub) handleFriendsOutgoing(w http.ResponseWriter, r *http.Request) {
	h.listFriends(w, r, h.store.ListOutgoing)
}

func (h *Hub) listFriends(w http.ResponseWriter, r *http.Request, list func(string) ([]database.Friend, error)) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondJSON(w, http.StatusOK, []interface{}{})
		return
	}
	friends, err := list(username)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, []interface{}{})
		return
	}
	respondJSON(w, http.StatusOK, friendsJSON(friends))
}

func (h *Hub) handleDmHistory(w http.ResponseWriter, r *http.Request) {
	me := r.URL.Query().Get("me")
	other := r.URL.Query().Get("with")
	if me == "" || other == "" {
		respondJSON(w, http.StatusOK, []interface{}{})
		return
	}
	msgs, err := h.store.DirectHistory(me, other, database.HistoryLimit)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, []interface{}{})
		return
	}
	out := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]interface{}{
			"sender":    m.Sender,
			"receiver":  m.Receiver,
			"text":      m.Text,
			"timestamp": m.Timestamp,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
