package browser

// Element-scoped functions run through CallFunctionOn with `this` bound to
// the target node.
const (
	// Uses the prototype's value setter so framework-controlled inputs see
	// the change.
	jsSetValue = `function(v) {
	const proto = Object.getPrototypeOf(this);
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(this, v); } else { this.value = v; }
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`

	jsClear = `function() {
	this.focus();
	if ('value' in this) {
		const proto = Object.getPrototypeOf(this);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(this, ''); } else { this.value = ''; }
		this.dispatchEvent(new Event('input', { bubbles: true }));
	} else if (this.isContentEditable) {
		this.textContent = '';
	}
}`

	jsValue = `function() {
	if (this.value === undefined || this.value === null) { return ''; }
	return String(this.value);
}`

	jsText = `function() {
	return (this.innerText || this.textContent || '').trim();
}`

	jsEnabled = `function() {
	if (this.disabled) { return false; }
	return this.getAttribute('aria-disabled') !== 'true';
}`

	jsSelected = `function() {
	if (typeof this.checked === 'boolean' && (this.type === 'checkbox' || this.type === 'radio')) { return this.checked; }
	if (typeof this.selected === 'boolean' && this.tagName === 'OPTION') { return this.selected; }
	return this.getAttribute('aria-checked') === 'true' || this.getAttribute('aria-selected') === 'true';
}`

	jsClick = `function() { this.click(); }`

	jsScrollIntoView = `function() { this.scrollIntoView({ block: 'center', inline: 'nearest' }); }`
)
