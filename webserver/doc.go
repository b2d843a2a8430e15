// Package webserver runs a mux service as an HTTP server: YAML
// configuration, optional HTTP/2 over cleartext (h2c), and graceful
// shutdown driven by context cancellation.
//
//	cfg, err := webserver.LoadConfigFile("server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := router.IntoService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := webserver.New(cfg, svc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := s.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package webserver
