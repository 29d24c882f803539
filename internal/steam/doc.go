// Package steam talks to Valve: OpenID 2.0 login, the Web API player
// summary, community inventories and the market price overview.
package steam
