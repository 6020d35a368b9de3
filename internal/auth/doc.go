// Package auth provides sessions, password hashing and request guards for the desk.
//
// It supports two modes:
//   - "none": client pages are open to anyone who knows the email (default)
//   - "local": client pages require a signed-in session for the same email
//
// # Configuration
//
//	AUTH_MODE=none|local
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//
// # Usage
//
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
//	mw := auth.NewMiddleware(sm, cfg.Auth)
//	router.Use(sm.SessionLoadSave(), mw.Handler())
//	router.GET("/client_return/:email", mw.RequireClient(), handler)
package auth
