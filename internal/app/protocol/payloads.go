package protocol

// UserView is the wire form of a lobby user. Nil fields are sent as JSON null.
type UserView struct {
	ID       *string `json:"id"`
	Username *string `json:"username"`
	Nickname *string `json:"nickname"`
	RoomID   *string `json:"roomId"`
}

// SystemNickname is the display name of the synthetic sender of system notices.
const SystemNickname = "System"

// SystemUser returns the sender used for system notices: a null id and the system nickname.
func SystemUser() UserView {
	nickname := SystemNickname
	return UserView{Nickname: &nickname}
}

// LoginRequest is the payload of req_login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinRequest is the payload of req_join. A null or empty RoomID asks for matchmaking.
type JoinRequest struct {
	RoomID *string `json:"roomId"`
}

// ChatRequest is the payload of c_chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// StatusResponse is the payload of res_login and res_join. Me is null unless Status is "succeed".
type StatusResponse struct {
	Status string    `json:"status"`
	Me     *UserView `json:"me"`
}

// ChatPayload is the payload of s_chat.
type ChatPayload struct {
	User    UserView `json:"user"`
	Message string   `json:"message"`
}

// FramePayload is the payload of frame: the ordered room members.
type FramePayload struct {
	Users []UserView `json:"users"`
}

// FatalPayload is the payload of fatal.
type FatalPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is the payload of error.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
