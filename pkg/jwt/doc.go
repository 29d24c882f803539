// Package jwt issues the backend identity for Steam-authenticated users.
//
// After Steam OpenID verification the API mints an RS256 access token whose
// claims carry the user record id (sub), the SteamID64 (steam_id), the
// derived identity key uid = "steam:<steamid64>" and the role:
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "keys/private.pem",
//	    Issuer:         "epicstrade.gg",
//	    ExpirationMins: 60,
//	})
//	token, err := svc.Sign(jwt.Claims{Subject: userID, SteamID: steamID, Role: jwt.RoleUser})
//
// Validate checks the signature, algorithm, expiry and issuer:
//
//	claims, err := svc.Validate(token)
//	if errors.Is(err, jwt.ErrTokenExpired) { ... }
package jwt
