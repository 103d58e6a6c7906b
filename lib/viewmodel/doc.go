// Package viewmodel connects UI components to a shared registry.IRegistry.
//
// Use and UseWithContext instantiate a view model from a constructor, its
// props and an optional context. They construct a fresh instance on every
// call and keep no cache, so the surrounding UI layer decides how often a view
// model is re-created (typically once per render).
//
// StoreViewModel is meant to be embedded in concrete view models. It gives
// them access to the shared registry and remembers every subscription made
// through UseGlobalStore, so that a single Dispose call on unmount detaches
// the component from all keys it observed.
//
// Usage Example:
//
//	type CartVM struct {
//	    *viewmodel.StoreViewModel[CartProps]
//	}
//
//	func NewCartVM(props CartProps, reg registry.IRegistry) *CartVM {
//	    return &CartVM{viewmodel.NewStoreViewModel(reg, props)}
//	}
//
//	vm := viewmodel.UseWithContext(NewCartVM, props, reg)
//	cart, setCart := vm.UseGlobalStore(KeyCart, registry.Object{}, rerender)
//	defer vm.Dispose()
package viewmodel
