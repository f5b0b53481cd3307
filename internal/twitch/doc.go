// Package twitch obtains and caches the app access token used to call IGDB.
//
// Tokens come from the Twitch client-credentials grant. A cached token is
// reused until its expiry instant passes; refreshes are serialized so
// concurrent requests share a single exchange.
package twitch
