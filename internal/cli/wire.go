package cli

import (
	"os"

	"github.com/oppnys/oppnys/internal/config"
	"github.com/oppnys/oppnys/internal/dispatch"
	"github.com/oppnys/oppnys/internal/pkgcache"
	"github.com/oppnys/oppnys/internal/registry"
	"github.com/oppnys/oppnys/internal/runtime"
	"github.com/oppnys/oppnys/internal/updater"
	"github.com/oppnys/oppnys/internal/userdata"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// newRegistryClient returns a client for the configured registry.
func newRegistryClient() *registry.Client {
	base := config.Registry()
	if base == "" {
		base = registry.DefaultURL(config.RegistryOrigin())
	}
	return registry.NewClient(base, registry.WithTimeout(config.RegistryTimeout()))
}

func newUpdater(client *registry.Client) *updater.Updater {
	return updater.New(buildVersion, registry.NewResolver(client),
		updater.WithTimeout(config.RegistryTimeout()),
		updater.WithLogger(logger),
	)
}

// newNodeRuntime returns the node runtime with its loader kept in the
// dependencies directory.
func newNodeRuntime() (*runtime.NodeRuntime, error) {
	deps, err := userdata.GetDependenciesDir()
	if err != nil {
		return nil, clierr.Configuration("resolve dependencies directory", err)
	}
	return &runtime.NodeRuntime{
		LoaderDir:  deps,
		MinVersion: config.MinNodeVersion(),
	}, nil
}

// newDispatcher wires the registry, package cache and executor into a
// dispatcher. With a target path override the cache is never touched.
func newDispatcher() (*dispatch.Dispatcher, error) {
	node, err := newNodeRuntime()
	if err != nil {
		return nil, err
	}
	executor := runtime.NewExecutor(
		runtime.WithNodeRuntime(node),
		runtime.WithStdio(os.Stdin, os.Stdout, os.Stderr),
		runtime.WithLogger(logger),
	)

	opts := []dispatch.Option{
		dispatch.WithPackages(config.Packages()),
		dispatch.WithLogger(logger),
	}
	if target := userdata.GetTargetPath(); target != "" {
		opts = append(opts, dispatch.WithTargetPath(target))
		return dispatch.New(nil, executor, opts...)
	}

	deps, err := userdata.GetDependenciesDir()
	if err != nil {
		return nil, clierr.Configuration("resolve dependencies directory", err)
	}
	client := newRegistryClient()
	cache, err := pkgcache.New(deps,
		registry.NewResolver(client),
		pkgcache.NewTarballInstaller(client, pkgcache.WithInstallLogger(logger)),
		pkgcache.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return dispatch.New(cache, executor, opts...)
}
