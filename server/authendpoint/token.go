package authendpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ChannelClaims binds a token to one connection and one channel.
type ChannelClaims struct {
	ConnectionID string `json:"connection_id"`
	Channel      string `json:"channel"`
	ChannelData  string `json:"channel_data,omitempty"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) Sign(connectionID, channel, channelData string) (string, error) {
	now := s.now()
	claims := ChannelClaims{
		ConnectionID: connectionID,
		Channel:      channel,
		ChannelData:  channelData,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "pushchan",
			Subject:   channel,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and that the token was issued for this
// connection and channel.
func (s *Signer) Verify(tokenString, connectionID, channel string) (*ChannelClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ChannelClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ChannelClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ConnectionID != connectionID || claims.Channel != channel {
		return nil, errors.New("token issued for another connection or channel")
	}
	return claims, nil
}
