package controller

import (
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	joinRoomType    = "room:join"
	leaveRoomType   = "room:leave"
	claimHostType   = "host:claim"
	setVideoType    = "room:video:set"
	playType        = "player:play"
	pauseType       = "player:pause"
	seekType        = "player:seek"
	playerStateType = "player:state"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(c.errorToAck)
	mux.Use(c.loggerWSMw())

	// membership
	wsrouter.Handle(mux, joinRoomType, c.handleJoinRoom)
	wsrouter.Handle(mux, leaveRoomType, c.handleLeaveRoom)
	wsrouter.Handle(mux, claimHostType, c.handleClaimHost)

	// player
	wsrouter.Handle(mux, setVideoType, c.handleSetVideo)
	wsrouter.Handle(mux, playType, c.handlePlay)
	wsrouter.Handle(mux, pauseType, c.handlePause)
	wsrouter.Handle(mux, seekType, c.handleSeek)
	wsrouter.Handle(mux, playerStateType, c.handlePlayerState)

	return mux
}
