// Package tcp implements the TCP socket transport of the remote HAL. It provides
// the tcp specific connectors for the base package, which implements framing,
// connection pooling and the server worker pool.
//
// Key Components:
//
//   - clientConnector: TCP implementation of base.IClientConnector
//
//   - serverConnector: TCP implementation of base.IServerConnector
//
// Both sides apply the SocketConf and TCPConf settings of their configuration
// (no delay, buffer sizes, keep-alive, linger) to every connection.
package tcp
