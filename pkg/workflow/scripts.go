package workflow

// Page scripts are constants. The selector and value reach the page as
// function arguments, never as part of the source.
const (
	clickScript = `(selector) => {
  const el = document.querySelector(selector);
  if (!el) return false;
  el.click();
  return true;
}`

	inputScript = `(selector, value) => {
  const el = document.querySelector(selector);
  if (!el) return false;
  el.focus();
  el.value = value;
  el.dispatchEvent(new Event("input", { bubbles: true }));
  el.dispatchEvent(new Event("change", { bubbles: true }));
  return true;
}`
)
