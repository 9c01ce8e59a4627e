// Package plugin describes third-party editor plugins by source locator and
// installs them through an external installer.
//
// A Spec names a plugin by its source (`owner/repo` or a full git URL), an
// optional checkout target, the plugins it depends on, and lifecycle hooks:
//
//	spec := plugin.Spec{
//	    Source:   "nvim-treesitter/nvim-treesitter",
//	    Checkout: "main",
//	    Depends:  []string{"nvim-lua/plenary.nvim"},
//	}
//	_ = spec.Hooks.Set("post_checkout", func(ev plugin.HookEvent) error {
//	    return updateParsers(ev.Path)
//	})
//
//	reg := plugin.NewRegistry(plugin.NewGitInstaller(dir))
//	err := reg.Add(ctx, spec)
//
// Dependencies are added before the plugin that names them, each plugin
// once. Cycles are rejected with ErrCyclicDependency.
//
// # Hooks
//
// Hook names follow the plugin lifecycle:
//
//	pre_install    before the first clone
//	post_install   after the first clone succeeded
//	pre_checkout   before checking out Checkout on an existing plugin
//	post_checkout  after the checkout changed the working tree
package plugin
