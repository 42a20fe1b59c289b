package http

import (
	"github.com/go-auth-api/internal/infrastructure/dynamo"
	"github.com/go-auth-api/internal/infrastructure/facebook"
	"github.com/go-auth-api/internal/infrastructure/google"
	jwtinfra "github.com/go-auth-api/internal/infrastructure/jwt"
	redisinfra "github.com/go-auth-api/internal/infrastructure/redis"
	"github.com/go-auth-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router. The Redis
// store doubles as the OTP code store and the rate-limit counter.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	Store       *redisinfra.Store
	Notifier    *smtp.Dispatcher
	JWTProvider *jwtinfra.Provider
	Google      *google.Verifier
	Facebook    *facebook.Verifier
}
